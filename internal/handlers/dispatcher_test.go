package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/conversation"
	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/service"
)

const chatID = int64(100)

type fakeService struct {
	mu        sync.Mutex
	reminders map[int64]models.Reminder
	nextID    int64
	periods   []models.SchedulePeriod
	photos    []*models.SchedulePhoto
	listErr   error
}

func newFakeService() *fakeService {
	return &fakeService{reminders: make(map[int64]models.Reminder)}
}

func (f *fakeService) CreateReminder(_ context.Context, r models.Reminder) (*models.Reminder, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.reminders[r.ID] = r
	return &r, nil
}

func (f *fakeService) GetReminder(_ context.Context, id, owner int64) (*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok || r.ChatID != owner {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeService) UpdateReminder(ctx context.Context, id, owner int64, patch models.ReminderPatch) (*models.Reminder, error) {
	r, err := f.GetReminder(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	updated := patch.Apply(*r)
	f.mu.Lock()
	f.reminders[id] = updated
	f.mu.Unlock()
	return &updated, nil
}

func (f *fakeService) SavePhoto(_ context.Context, owner int64, ref string, period models.PeriodTag) (*models.SchedulePhoto, error) {
	p := &models.SchedulePhoto{ID: int64(len(f.photos) + 1), ChatID: owner, ImageRef: ref, Period: period}
	f.photos = append(f.photos, p)
	return p, nil
}

func (f *fakeService) QuickAdd(ctx context.Context, owner int64, args string) (*models.Reminder, error) {
	r, err := service.ParseQuickAdd(owner, args)
	if err != nil {
		return nil, err
	}
	return f.CreateReminder(ctx, r)
}

func (f *fakeService) ListReminders(_ context.Context, owner int64) ([]*models.Reminder, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, r := range f.reminders {
		if r.ChatID == owner {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (f *fakeService) DeleteReminder(_ context.Context, id, owner int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[id]
	if !ok || r.ChatID != owner {
		return models.ErrNotFound
	}
	delete(f.reminders, id)
	return nil
}

func (f *fakeService) Schedule(_ context.Context, _ int64, period models.SchedulePeriod) (*models.ScheduleView, error) {
	f.periods = append(f.periods, period)
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return &models.ScheduleView{Period: period, From: day, To: day}, nil
}

func (f *fakeService) ListPhotos(_ context.Context, owner int64) ([]*models.SchedulePhoto, error) {
	var out []*models.SchedulePhoto
	for _, p := range f.photos {
		if p.ChatID == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

type sent struct {
	text  string
	image string
}

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []sent
	imageErr error
}

func (n *fakeNotifier) Deliver(_ context.Context, _ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{text: text})
	return nil
}

func (n *fakeNotifier) SendImage(_ context.Context, _ int64, ref, caption string) error {
	if n.imageErr != nil {
		return n.imageErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{text: caption, image: ref})
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeService, *fakeNotifier) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	svc := newFakeService()
	notifier := &fakeNotifier{}
	machine := conversation.NewMachine(svc, conversation.NewSessions(time.Hour, nil), logger)
	d := NewDispatcher(machine, nil, logger)

	schedule := NewScheduleHandler(svc, logger)
	d.RegisterCommand(chat.CommandStart, NewStartHandler(logger))
	d.RegisterCommand(chat.CommandHelp, NewHelpHandler(logger))
	d.RegisterCommand(chat.CommandAdd, NewAddHandler(svc, machine, logger))
	d.RegisterCommand(chat.CommandList, NewListHandler(svc, logger))
	d.RegisterCommand(chat.CommandEdit, NewEditHandler(machine, logger))
	d.RegisterCommand(chat.CommandDelete, NewDeleteHandler(svc, logger))
	d.RegisterCommand(chat.CommandSchedule, schedule)
	d.RegisterCommand(chat.CommandToday, schedule)
	d.RegisterCommand(chat.CommandWeek, schedule)
	d.RegisterCommand(chat.CommandAddPhoto, NewAddPhotoHandler(machine))
	d.RegisterCommand(chat.CommandPhotos, NewPhotosHandler(svc, notifier, logger))
	d.RegisterSelection(ScheduleTagPrefix, schedule)

	return d, svc, notifier
}

func command(kind chat.CommandKind, args string) chat.Command {
	return chat.Command{Chat: chatID, Kind: kind, Args: args}
}

func TestDispatcher_Start(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	reply := d.HandleCommand(context.Background(), command(chat.CommandStart, ""))
	assert.True(t, reply.MainMenu)
	assert.Contains(t, reply.Text, "reminder bot")
}

func TestDispatcher_UnknownInput(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "hello?"})
	assert.Equal(t, msgUnknown, reply.Text)

	reply = d.HandleCommand(ctx, command(chat.CommandMonth, ""))
	assert.Equal(t, msgUnknown, reply.Text)
}

func TestDispatcher_AddConversation(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleCommand(ctx, command(chat.CommandAdd, ""))
	session := reply.Session
	d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "Buy milk"})
	d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "08:15"})
	reply = d.HandleEvent(ctx, chat.SelectionEvent{Chat: chatID, Tag: conversation.TagDaysWeekdays, Session: session})

	assert.Contains(t, reply.Text, "Reminder created")
	require.Len(t, svc.reminders, 1)
	assert.Equal(t, models.Weekly(models.Weekdays), svc.reminders[1].Recurrence)

	reply = d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "more"})
	assert.Equal(t, msgUnknown, reply.Text)
}

func TestDispatcher_QuickAdd(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleCommand(ctx, command(chat.CommandAdd, "14:30 Do the homework weekdays"))
	assert.Contains(t, reply.Text, "Do the homework")
	require.Len(t, svc.reminders, 1)

	reply = d.HandleCommand(ctx, command(chat.CommandAdd, "25:30 Late weekdays"))
	assert.Contains(t, reply.Text, "Format: /add")
	assert.Len(t, svc.reminders, 1)
}

func TestDispatcher_EditAndDelete(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.HandleCommand(ctx, command(chat.CommandAdd, "09:00 Read daily"))

	reply := d.HandleCommand(ctx, command(chat.CommandEdit, "abc"))
	assert.Contains(t, reply.Text, "/edit 123")

	reply = d.HandleCommand(ctx, command(chat.CommandEdit, "42"))
	assert.Equal(t, msgNotFound, reply.Text)

	reply = d.HandleCommand(ctx, command(chat.CommandEdit, "1"))
	require.NotEmpty(t, reply.Buttons)
	d.HandleEvent(ctx, chat.SelectionEvent{Chat: chatID, Tag: conversation.TagEditText, Session: reply.Session})
	d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "Read a book"})
	assert.Equal(t, "Read a book", svc.reminders[1].Text)

	reply = d.HandleCommand(ctx, chat.Command{Chat: chatID + 1, Kind: chat.CommandDelete, Args: "1"})
	assert.Equal(t, msgNotFound, reply.Text)

	reply = d.HandleCommand(ctx, command(chat.CommandDelete, "1"))
	assert.Equal(t, "✅ Reminder 1 deleted.", reply.Text)
	assert.Empty(t, svc.reminders)
}

func TestDispatcher_Schedule(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleCommand(ctx, command(chat.CommandSchedule, ""))
	require.Len(t, reply.Buttons, 2)

	reply = d.HandleEvent(ctx, chat.SelectionEvent{Chat: chatID, Tag: reply.Buttons[1][0].Tag})
	assert.True(t, reply.Replace)
	assert.Contains(t, reply.Text, "Schedule for the week")

	d.HandleCommand(ctx, command(chat.CommandToday, ""))
	assert.Equal(t, []models.SchedulePeriod{models.ScheduleWeek, models.ScheduleToday}, svc.periods)
}

func TestDispatcher_Cancel(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleCommand(ctx, command(chat.CommandCancel, ""))
	assert.Equal(t, "Nothing to cancel.", reply.Text)

	d.HandleCommand(ctx, command(chat.CommandAdd, ""))
	reply = d.HandleCommand(ctx, command(chat.CommandCancel, ""))
	assert.Contains(t, reply.Text, "cancelled")

	reply = d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "Buy milk"})
	assert.Equal(t, msgUnknown, reply.Text)
}

func TestDispatcher_CommandClosesOpenSession(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.HandleCommand(ctx, command(chat.CommandAdd, ""))
	d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "Buy milk"})

	reply := d.HandleCommand(ctx, command(chat.CommandList, ""))
	assert.NotEqual(t, msgUnknown, reply.Text)

	reply = d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "08:15"})
	assert.Equal(t, msgUnknown, reply.Text)
	assert.Empty(t, svc.reminders)

	reply = d.HandleCommand(ctx, command(chat.CommandAdd, ""))
	require.NotEqual(t, uuid.Nil, reply.Session)
	reply = d.HandleEvent(ctx, chat.TextEvent{Chat: chatID, Text: "Water plants"})
	assert.NotEqual(t, msgUnknown, reply.Text)
}

func TestDispatcher_StaleSelection(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	reply := d.HandleEvent(context.Background(), chat.SelectionEvent{Chat: chatID, Tag: conversation.TagDaysDaily})
	assert.Equal(t, msgExpired, reply.Text)
}

func TestDispatcher_PhotoFlowAndListing(t *testing.T) {
	d, svc, notifier := newTestDispatcher(t)
	ctx := context.Background()

	reply := d.HandleEvent(ctx, chat.ImageEvent{Chat: chatID, ImageRef: "file-9"})
	d.HandleEvent(ctx, chat.SelectionEvent{Chat: chatID, Tag: "photo_day", Session: reply.Session})
	require.Len(t, svc.photos, 1)

	reply = d.HandleCommand(ctx, command(chat.CommandPhotos, ""))
	assert.Empty(t, reply.Text)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "file-9", notifier.sent[1].image)

	notifier.sent = nil
	notifier.imageErr = errors.New("file expired")
	d.HandleCommand(ctx, command(chat.CommandPhotos, ""))
	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[1].text, "Could not send photo ID 1")
}

func TestDispatcher_HandlerErrorIsGeneric(t *testing.T) {
	d, svc, _ := newTestDispatcher(t)
	svc.listErr = &models.StorageError{Op: "list reminders", Err: errors.New("db down")}

	reply := d.HandleCommand(context.Background(), command(chat.CommandList, ""))
	assert.Equal(t, msgInternalError, reply.Text)
}

func TestChatLocks_SerializePerChat(t *testing.T) {
	locks := newChatLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock(1)
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locks.locks)
}
