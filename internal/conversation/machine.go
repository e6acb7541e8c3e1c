// Package conversation implements the multi-turn flows that collect reminder
// fields (add, edit) and schedule photos, one open session per chat.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/format"
	"github.com/Kerhoff/remindbot/internal/models"
)

// Selection tags rendered by the flows.
const (
	TagCancel       = "cancel"
	TagDaysWeekdays = "days_weekdays"
	TagDaysWeekend  = "days_weekend"
	TagDaysDaily    = "days_daily"
	TagDaysCustom   = "days_custom"
	TagDaysDone     = "days_done"
	TagEditText     = "edit_text"
	TagEditTime     = "edit_time"
	TagEditDays     = "edit_days"

	dayTagPrefix   = "day_"
	photoTagPrefix = "photo_"
)

const (
	msgCancelled   = "❌ Operation cancelled."
	msgExpired     = "⌛ This menu has expired. Start again from the main menu."
	msgAskText     = "📝 Enter the reminder text:"
	msgAskTime     = "⏰ Enter the time in HH:MM format (e.g. 14:30):"
	msgBadTime     = "❌ Invalid time format. Enter it as HH:MM:"
	msgAskDays     = "📅 Choose the days for the reminder:"
	msgUseButtons  = "👇 Please choose using the buttons below."
	msgAskCustom   = "📅 Tap the days you want, then press Done. You can also type them, e.g. mon,wed,fri, or once."
	msgAskPhoto    = "📸 Send a photo of your schedule:"
	msgAskPeriod   = "📸 Photo received! Which period is this schedule for?"
	msgSaveFailed  = "❌ Could not save the reminder. Please try again later."
	msgNotFound    = "❌ Reminder not found."
	msgPhotoFailed = "❌ Could not save the photo. Please try again later."
)

// ReminderService is what the flows need to persist their results.
type ReminderService interface {
	CreateReminder(ctx context.Context, r models.Reminder) (*models.Reminder, error)
	GetReminder(ctx context.Context, id, chatID int64) (*models.Reminder, error)
	UpdateReminder(ctx context.Context, id, chatID int64, patch models.ReminderPatch) (*models.Reminder, error)
	SavePhoto(ctx context.Context, chatID int64, imageRef string, period models.PeriodTag) (*models.SchedulePhoto, error)
}

// Machine drives the per-chat flows. Callers must not handle two events of the
// same chat concurrently.
type Machine struct {
	svc      ReminderService
	sessions *Sessions
	logger   *logrus.Logger
}

// NewMachine creates a conversation state machine.
func NewMachine(svc ReminderService, sessions *Sessions, logger *logrus.Logger) *Machine {
	return &Machine{svc: svc, sessions: sessions, logger: logger}
}

// Active reports whether chatID has an open session.
func (m *Machine) Active(chatID int64) bool {
	_, ok := m.sessions.Get(chatID)
	return ok
}

// State returns the state of the open session, if any.
func (m *Machine) State(chatID int64) (State, bool) {
	sess, ok := m.sessions.Get(chatID)
	return sess.State, ok
}

// StartAdd opens the add flow.
func (m *Machine) StartAdd(chatID int64) chat.Reply {
	sess := m.sessions.Open(chatID, StateAddText)
	return chat.Reply{Text: msgAskText, Session: sess.ID}
}

// StartEdit opens the edit flow for a reminder of chatID.
func (m *Machine) StartEdit(ctx context.Context, chatID, reminderID int64) (chat.Reply, error) {
	r, err := m.svc.GetReminder(ctx, reminderID, chatID)
	if err != nil {
		return chat.Reply{}, err
	}

	sess := m.sessions.Open(chatID, StateEditChoose)
	sess.ReminderID = r.ID
	m.sessions.Save(sess)

	return chat.Reply{
		Text: format.EditPrompt(r),
		Buttons: [][]chat.Button{
			chat.Row(chat.Button{Label: "📝 Text", Tag: TagEditText}),
			chat.Row(chat.Button{Label: "⏰ Time", Tag: TagEditTime}),
			chat.Row(chat.Button{Label: "📅 Days", Tag: TagEditDays}),
			chat.Row(cancelButton),
		},
		Session: sess.ID,
	}, nil
}

// StartPhoto opens the photo flow waiting for an image.
func (m *Machine) StartPhoto(chatID int64) chat.Reply {
	sess := m.sessions.Open(chatID, StatePhotoImage)
	return chat.Reply{Text: msgAskPhoto, Buttons: [][]chat.Button{chat.Row(cancelButton)}, Session: sess.ID}
}

// Cancel discards the open session of chatID.
func (m *Machine) Cancel(chatID int64) chat.Reply {
	m.sessions.Close(chatID)
	return chat.Reply{Text: msgCancelled, Replace: true}
}

// Handle feeds an event to the open session. handled is false when the chat has
// no session and the event does not start one.
func (m *Machine) Handle(ctx context.Context, ev chat.Event) (reply chat.Reply, handled bool) {
	sess, ok := m.sessions.Get(ev.ChatID())
	if !ok {
		if img, isImage := ev.(chat.ImageEvent); isImage {
			return m.receiveImage(m.sessions.Open(img.Chat, StatePhotoImage), img), true
		}
		return chat.Reply{}, false
	}

	if sel, isSelection := ev.(chat.SelectionEvent); isSelection {
		if sel.Session != uuid.Nil && sel.Session != sess.ID {
			return chat.Reply{Text: msgExpired}, true
		}
		if sel.Tag == TagCancel {
			return m.Cancel(sess.ChatID), true
		}
	}

	log := m.logger.WithFields(logrus.Fields{
		"chat_id": sess.ChatID,
		"state":   sess.State,
		"event":   ev.Kind(),
	})
	log.Debug("Conversation event")

	switch sess.State {
	case StateAddText, StateEditText:
		return m.collectText(ctx, sess, ev), true
	case StateAddTime, StateEditTime:
		return m.collectTime(ctx, sess, ev), true
	case StateAddDays, StateEditDays:
		return m.collectDays(ctx, sess, ev), true
	case StateAddCustomDays, StateEditCustomDays:
		return m.collectCustomDays(ctx, sess, ev), true
	case StateEditChoose:
		return m.chooseField(sess, ev), true
	case StatePhotoImage:
		if img, isImage := ev.(chat.ImageEvent); isImage {
			return m.receiveImage(sess, img), true
		}
		return chat.Reply{Text: msgAskPhoto, Buttons: [][]chat.Button{chat.Row(cancelButton)}, Session: sess.ID}, true
	case StatePhotoPeriod:
		return m.collectPeriod(ctx, sess, ev), true
	}

	log.Error("Session in unknown state, discarding")
	m.sessions.Close(sess.ChatID)
	return chat.Reply{Text: msgCancelled}, true
}

func (m *Machine) collectText(ctx context.Context, sess Session, ev chat.Event) chat.Reply {
	te, ok := ev.(chat.TextEvent)
	if !ok {
		return chat.Reply{Text: msgAskText, Session: sess.ID}
	}
	text := strings.TrimSpace(te.Text)
	if text == "" {
		return chat.Reply{Text: "❌ The reminder text must not be empty. " + msgAskText, Session: sess.ID}
	}

	if sess.State == StateEditText {
		return m.applyEdit(ctx, sess, models.ReminderPatch{Text: &text}, false)
	}

	sess.Text = text
	sess.State = StateAddTime
	m.sessions.Save(sess)
	return chat.Reply{Text: msgAskTime, Session: sess.ID}
}

func (m *Machine) collectTime(ctx context.Context, sess Session, ev chat.Event) chat.Reply {
	te, ok := ev.(chat.TextEvent)
	if !ok {
		return chat.Reply{Text: msgAskTime, Session: sess.ID}
	}
	hour, minute, err := models.ParseTimeOfDay(te.Text)
	if err != nil {
		return chat.Reply{Text: msgBadTime, Session: sess.ID}
	}

	if sess.State == StateEditTime {
		return m.applyEdit(ctx, sess, models.ReminderPatch{Hour: &hour, Minute: &minute}, false)
	}

	sess.Hour, sess.Minute = hour, minute
	sess.State = StateAddDays
	m.sessions.Save(sess)
	return daysReply(sess)
}

func (m *Machine) collectDays(ctx context.Context, sess Session, ev chat.Event) chat.Reply {
	sel, ok := ev.(chat.SelectionEvent)
	if !ok {
		reply := daysReply(sess)
		reply.Text = msgUseButtons
		return reply
	}

	var rec models.Recurrence
	switch sel.Tag {
	case TagDaysWeekdays:
		rec = models.Weekly(models.Weekdays)
	case TagDaysWeekend:
		rec = models.Weekly(models.Weekend)
	case TagDaysDaily:
		rec = models.Weekly(models.AllDays)
	case TagDaysCustom:
		if sess.State == StateEditDays {
			sess.State = StateEditCustomDays
		} else {
			sess.State = StateAddCustomDays
		}
		sess.Days = 0
		m.sessions.Save(sess)
		return customDaysReply(sess)
	default:
		reply := daysReply(sess)
		reply.Text = msgUseButtons
		return reply
	}

	return m.finishDays(ctx, sess, rec)
}

func (m *Machine) collectCustomDays(ctx context.Context, sess Session, ev chat.Event) chat.Reply {
	switch e := ev.(type) {
	case chat.SelectionEvent:
		if code, ok := strings.CutPrefix(e.Tag, dayTagPrefix); ok {
			d, err := models.ParseWeekday(code)
			if err != nil {
				return customDaysReply(sess)
			}
			sess.Days = sess.Days.Toggle(d)
			m.sessions.Save(sess)
			reply := customDaysReply(sess)
			reply.Replace = true
			return reply
		}
		if e.Tag == TagDaysDone {
			if sess.Days.Empty() {
				reply := customDaysReply(sess)
				reply.Text = "❌ Select at least one day."
				return reply
			}
			return m.finishDays(ctx, sess, models.Weekly(sess.Days))
		}
		return customDaysReply(sess)

	case chat.TextEvent:
		rec, err := models.ParseDaySpec(e.Text)
		if err != nil {
			reply := customDaysReply(sess)
			reply.Text = "❌ Unknown days. " + msgAskCustom
			return reply
		}
		return m.finishDays(ctx, sess, rec)
	}

	return customDaysReply(sess)
}

func (m *Machine) finishDays(ctx context.Context, sess Session, rec models.Recurrence) chat.Reply {
	if sess.State == StateEditDays || sess.State == StateEditCustomDays {
		return m.applyEdit(ctx, sess, models.ReminderPatch{Recurrence: &rec}, true)
	}
	return m.commit(ctx, sess, rec)
}

// commit persists and arms the reminder collected by the add flow.
func (m *Machine) commit(ctx context.Context, sess Session, rec models.Recurrence) chat.Reply {
	created, err := m.svc.CreateReminder(ctx, models.Reminder{
		ChatID:     sess.ChatID,
		Text:       sess.Text,
		Hour:       sess.Hour,
		Minute:     sess.Minute,
		Recurrence: rec,
	})
	if err != nil {
		if ve, ok := models.IsValidation(err); ok {
			return chat.Reply{Text: "❌ " + ve.Message, Session: sess.ID}
		}
		m.logger.WithError(err).WithField("chat_id", sess.ChatID).Error("Failed to create reminder")
		m.sessions.Close(sess.ChatID)
		return chat.Reply{Text: msgSaveFailed}
	}

	m.sessions.Close(sess.ChatID)
	return chat.Reply{Text: format.ReminderCard("✅ Reminder created!", created), Replace: true}
}

func (m *Machine) chooseField(sess Session, ev chat.Event) chat.Reply {
	sel, ok := ev.(chat.SelectionEvent)
	if !ok {
		return chat.Reply{Text: msgUseButtons, Session: sess.ID}
	}

	switch sel.Tag {
	case TagEditText:
		sess.State = StateEditText
		m.sessions.Save(sess)
		return chat.Reply{Text: "📝 Enter the new reminder text:", Session: sess.ID, Replace: true}
	case TagEditTime:
		sess.State = StateEditTime
		m.sessions.Save(sess)
		return chat.Reply{Text: "⏰ Enter the new time in HH:MM format:", Session: sess.ID, Replace: true}
	case TagEditDays:
		sess.State = StateEditDays
		m.sessions.Save(sess)
		reply := daysReply(sess)
		reply.Replace = true
		return reply
	}
	return chat.Reply{Text: msgUseButtons, Session: sess.ID}
}

func (m *Machine) applyEdit(ctx context.Context, sess Session, patch models.ReminderPatch, replace bool) chat.Reply {
	updated, err := m.svc.UpdateReminder(ctx, sess.ReminderID, sess.ChatID, patch)
	if err != nil {
		if ve, ok := models.IsValidation(err); ok {
			return chat.Reply{Text: "❌ " + ve.Message, Session: sess.ID}
		}
		m.sessions.Close(sess.ChatID)
		if errors.Is(err, models.ErrNotFound) {
			return chat.Reply{Text: msgNotFound}
		}
		m.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":     sess.ChatID,
			"reminder_id": sess.ReminderID,
		}).Error("Failed to update reminder")
		return chat.Reply{Text: msgSaveFailed}
	}

	m.sessions.Close(sess.ChatID)
	return chat.Reply{Text: format.ReminderCard("✅ Reminder updated!", updated), Replace: replace}
}

func (m *Machine) receiveImage(sess Session, img chat.ImageEvent) chat.Reply {
	sess.ImageRef = img.ImageRef
	sess.State = StatePhotoPeriod
	m.sessions.Save(sess)
	return periodReply(sess)
}

func (m *Machine) collectPeriod(ctx context.Context, sess Session, ev chat.Event) chat.Reply {
	sel, ok := ev.(chat.SelectionEvent)
	if !ok {
		if img, isImage := ev.(chat.ImageEvent); isImage {
			return m.receiveImage(sess, img)
		}
		return periodReply(sess)
	}
	code, ok := strings.CutPrefix(sel.Tag, photoTagPrefix)
	if !ok {
		return periodReply(sess)
	}
	period, err := models.ParsePeriodTag(code)
	if err != nil {
		return periodReply(sess)
	}

	photo, err := m.svc.SavePhoto(ctx, sess.ChatID, sess.ImageRef, period)
	m.sessions.Close(sess.ChatID)
	if err != nil {
		m.logger.WithError(err).WithField("chat_id", sess.ChatID).Error("Failed to save schedule photo")
		return chat.Reply{Text: msgPhotoFailed}
	}
	return chat.Reply{
		Text:    fmt.Sprintf("✅ Schedule photo for the %s saved!\n\nView: /photos", format.PeriodName(photo.Period)),
		Replace: true,
	}
}

var cancelButton = chat.Button{Label: "❌ Cancel", Tag: TagCancel}

func daysReply(sess Session) chat.Reply {
	return chat.Reply{
		Text: msgAskDays,
		Buttons: [][]chat.Button{
			chat.Row(chat.Button{Label: "Weekdays", Tag: TagDaysWeekdays}, chat.Button{Label: "Weekend", Tag: TagDaysWeekend}),
			chat.Row(chat.Button{Label: "Every day", Tag: TagDaysDaily}, chat.Button{Label: "Choose days", Tag: TagDaysCustom}),
			chat.Row(cancelButton),
		},
		Session: sess.ID,
	}
}

func customDaysReply(sess Session) chat.Reply {
	week := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}

	var rows [][]chat.Button
	var row []chat.Button
	for _, d := range week {
		label := d.String()[:3]
		if sess.Days.Has(d) {
			label = "✅ " + label
		}
		row = append(row, chat.Button{Label: label, Tag: dayTagPrefix + models.WeekdayCode(d)})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	rows = append(rows, row)
	rows = append(rows, chat.Row(chat.Button{Label: "✔️ Done", Tag: TagDaysDone}, cancelButton))

	return chat.Reply{Text: msgAskCustom, Buttons: rows, Session: sess.ID}
}

func periodReply(sess Session) chat.Reply {
	return chat.Reply{
		Text: msgAskPeriod,
		Buttons: [][]chat.Button{
			chat.Row(
				chat.Button{Label: "📅 Day", Tag: photoTagPrefix + string(models.PeriodDay)},
				chat.Button{Label: "🗓️ Week", Tag: photoTagPrefix + string(models.PeriodWeek)},
			),
			chat.Row(
				chat.Button{Label: "📊 Month", Tag: photoTagPrefix + string(models.PeriodMonth)},
				cancelButton,
			),
		},
		Session: sess.ID,
	}
}
