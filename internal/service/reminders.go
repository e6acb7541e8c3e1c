package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/models"
)

// CreateReminder validates, stores and arms a new reminder. When arming fails
// the stored row is removed again, so no reminder is left active without a job.
func (s *Service) CreateReminder(ctx context.Context, r models.Reminder) (*models.Reminder, error) {
	r.Text = strings.TrimSpace(r.Text)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	r.CreatedAt = s.now()

	created, err := s.Reminders.Insert(ctx, &r)
	if err != nil {
		return nil, storageErr("insert reminder", err)
	}

	next, err := s.scheduler.Arm(*created)
	if err != nil {
		if _, delErr := s.Reminders.Delete(ctx, created.ID, created.ChatID); delErr != nil {
			s.logger.WithError(delErr).WithField("reminder_id", created.ID).Error("Failed to roll back unarmed reminder")
		}
		return nil, fmt.Errorf("failed to arm reminder %d: %w", created.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id":     created.ChatID,
		"reminder_id": created.ID,
		"next_fire":   next,
	}).Info("Reminder created")
	return created, nil
}

// GetReminder returns a reminder of chatID.
func (s *Service) GetReminder(ctx context.Context, id, chatID int64) (*models.Reminder, error) {
	r, err := s.Reminders.Get(ctx, id, chatID)
	if err != nil {
		return nil, storageErr("get reminder", err)
	}
	return r, nil
}

// ListReminders returns the active reminders of chatID ordered by time of day.
func (s *Service) ListReminders(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	reminders, err := s.Reminders.ListActive(ctx, chatID)
	if err != nil {
		return nil, storageErr("list reminders", err)
	}
	return reminders, nil
}

// UpdateReminder applies patch to a reminder of chatID. Changes to the time or
// the days re-arm the job; a text-only change keeps the armed deadline, the
// fire path reads the current text from the store.
func (s *Service) UpdateReminder(ctx context.Context, id, chatID int64, patch models.ReminderPatch) (*models.Reminder, error) {
	current, err := s.Reminders.Get(ctx, id, chatID)
	if err != nil {
		return nil, storageErr("get reminder", err)
	}
	if patch.Text != nil {
		trimmed := strings.TrimSpace(*patch.Text)
		patch.Text = &trimmed
	}
	merged := patch.Apply(*current)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.Reminders.Update(ctx, id, chatID, patch)
	if err != nil {
		return nil, storageErr("update reminder", err)
	}

	log := s.logger.WithFields(logrus.Fields{"chat_id": chatID, "reminder_id": id})
	if patch.Reschedules() {
		next, err := s.scheduler.Arm(*updated)
		if err != nil {
			return nil, fmt.Errorf("failed to re-arm reminder %d: %w", id, err)
		}
		log = log.WithField("next_fire", next)
	}
	log.Info("Reminder updated")
	return updated, nil
}

// DeleteReminder removes a reminder of chatID and cancels its job.
func (s *Service) DeleteReminder(ctx context.Context, id, chatID int64) error {
	n, err := s.Reminders.Delete(ctx, id, chatID)
	if err != nil {
		return storageErr("delete reminder", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	s.scheduler.Cancel(id)

	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "reminder_id": id}).Info("Reminder deleted")
	return nil
}

// NextFire returns the armed deadline of a reminder.
func (s *Service) NextFire(id int64) (time.Time, bool) {
	return s.scheduler.NextFire(id)
}

// QuickAddUsage describes the one-line add format.
const QuickAddUsage = "/add 14:30 Do the homework weekdays"

// ParseQuickAdd parses "<HH:MM> <text...> <days>" into an unsaved reminder.
// The text may contain spaces; the day spec is the last word.
func ParseQuickAdd(chatID int64, args string) (models.Reminder, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return models.Reminder{}, &models.ValidationError{Field: "format", Message: "use " + QuickAddUsage}
	}

	hour, minute, err := models.ParseTimeOfDay(fields[0])
	if err != nil {
		return models.Reminder{}, err
	}
	rec, err := models.ParseDaySpec(fields[len(fields)-1])
	if err != nil {
		return models.Reminder{}, err
	}

	return models.Reminder{
		ChatID:     chatID,
		Text:       strings.Join(fields[1:len(fields)-1], " "),
		Hour:       hour,
		Minute:     minute,
		Recurrence: rec,
	}, nil
}

// QuickAdd creates a reminder from a one-line add command.
func (s *Service) QuickAdd(ctx context.Context, chatID int64, args string) (*models.Reminder, error) {
	r, err := ParseQuickAdd(chatID, args)
	if err != nil {
		return nil, err
	}
	return s.CreateReminder(ctx, r)
}
