// Package scheduler keeps one timer per active reminder and fires deliveries at
// the times computed by the recurrence package. Timers are cron entries with a
// custom schedule, so nothing polls the store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/metrics"
	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/recurrence"
)

// ReminderStore is the part of the reminder repository the scheduler needs.
type ReminderStore interface {
	Get(ctx context.Context, id, chatID int64) (*models.Reminder, error)
	Delete(ctx context.Context, id, chatID int64) (int64, error)
	ListAllActive(ctx context.Context) ([]*models.Reminder, error)
}

// Job describes an armed reminder.
type Job struct {
	ReminderID int64
	ChatID     int64
	NextFire   time.Time
}

type job struct {
	reminder models.Reminder
	entryID  cron.EntryID
	next     time.Time
	seq      uint64
}

// Scheduler owns the armed jobs. Job state changes are serialized by mu, so an
// Arm or Cancel that returns is ordered before any later fire. Deliveries run
// outside mu.
type Scheduler struct {
	cron            *cron.Cron
	store           ReminderStore
	notifier        chat.Notifier
	logger          *logrus.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
	deliveryTimeout time.Duration

	seq     atomic.Uint64
	running atomic.Bool

	mu   sync.Mutex
	jobs map[int64]*job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithDeliveryTimeout bounds each delivery and store call made while firing.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.deliveryTimeout = d }
}

// WithMetrics records scheduler metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler. Call Start to begin firing.
func New(store ReminderStore, notifier chat.Notifier, logger *logrus.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:           store,
		notifier:        notifier,
		logger:          logger,
		now:             time.Now,
		deliveryTimeout: 10 * time.Second,
		jobs:            make(map[int64]*job),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}

	clog := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(time.Local),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog)),
	)
	return s
}

// Start starts the timer subsystem.
func (s *Scheduler) Start() {
	if s.running.CAS(false, true) {
		s.cron.Start()
		s.logger.Info("Reminder scheduler started")
	}
}

// Stop stops the timer subsystem, waits for a fire in progress to finish (or ctx
// to expire) and drops every job.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.running.CAS(true, false) {
		return nil
	}

	var err error
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		err = fmt.Errorf("waiting for running reminder jobs: %w", ctx.Err())
	}

	s.mu.Lock()
	for id := range s.jobs {
		s.removeLocked(id)
	}
	s.mu.Unlock()

	s.logger.Info("Reminder scheduler stopped")
	return err
}

// Arm schedules the next firing of reminder, replacing any job already armed for
// its id. It returns the next fire time.
func (s *Scheduler) Arm(reminder models.Reminder) (time.Time, error) {
	if err := reminder.Recurrence.Validate(); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	next := recurrence.Next(reminder, now)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("reminder %d has no next fire time", reminder.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(reminder.ID)

	seq := s.seq.Inc()
	id := reminder.ID
	entryID := s.cron.Schedule(recurrence.NewSchedule(reminder, now), cron.FuncJob(func() {
		s.fire(id, seq)
	}))
	s.jobs[id] = &job{reminder: reminder, entryID: entryID, next: next, seq: seq}

	s.metrics.Arms.Inc()
	s.metrics.JobsArmed.Set(float64(len(s.jobs)))

	s.logger.WithFields(logrus.Fields{
		"reminder_id": id,
		"chat_id":     reminder.ChatID,
		"next_fire":   next.Format(time.RFC3339),
	}).Debug("Reminder armed")

	return next, nil
}

// Cancel drops the job for id. It is a no-op when no job is armed.
func (s *Scheduler) Cancel(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

func (s *Scheduler) removeLocked(id int64) bool {
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, id)
	s.metrics.JobsArmed.Set(float64(len(s.jobs)))
	return true
}

// Reconcile arms every active reminder in the store. One-time reminders whose
// time passed while the process was down are armed for the next day.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	reminders, err := s.store.ListAllActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active reminders: %w", err)
	}

	armed := 0
	for _, r := range reminders {
		if _, err := s.Arm(*r); err != nil {
			s.logger.WithError(err).WithField("reminder_id", r.ID).Error("Failed to arm reminder")
			continue
		}
		armed++
	}

	s.logger.Infof("Loaded %d reminders", armed)
	return armed, nil
}

// NextFire returns the next fire time of the job armed for id.
func (s *Scheduler) NextFire(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return time.Time{}, false
	}
	return j.next, true
}

// Jobs lists the armed jobs ordered by next fire time.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, 0, len(s.jobs))
	for id, j := range s.jobs {
		jobs = append(jobs, Job{ReminderID: id, ChatID: j.reminder.ChatID, NextFire: j.next})
	}
	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].NextFire.Equal(jobs[b].NextFire) {
			return jobs[a].ReminderID < jobs[b].ReminderID
		}
		return jobs[a].NextFire.Before(jobs[b].NextFire)
	})
	return jobs
}

// Len returns the number of armed jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// NotificationText formats the message delivered when a reminder fires.
func NotificationText(text string) string {
	return "🔔 Reminder:\n" + text
}

// fire runs one activation of the job armed with seq. A job that was cancelled
// or replaced since the timer was set does nothing. The store reload and the
// delivery run without mu held; a job replaced or cancelled while its message
// is in flight is neither consumed nor re-armed afterwards.
func (s *Scheduler) fire(id int64, seq uint64) {
	reminder, ok := s.armed(id, seq)
	if !ok {
		return
	}
	firedAt := s.now()

	log := s.logger.WithFields(logrus.Fields{
		"reminder_id": id,
		"chat_id":     reminder.ChatID,
	})

	current, err := s.lookup(id, reminder.ChatID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		log.Warn("Armed reminder no longer exists, dropping job")
		s.mu.Lock()
		if j, ok := s.jobs[id]; ok && j.seq == seq {
			s.removeLocked(id)
		}
		s.mu.Unlock()
		return
	case err != nil:
		log.WithError(err).Warn("Failed to reload reminder, delivering cached copy")
	default:
		reminder = *current
	}

	if err := s.deliver(reminder); err != nil {
		s.metrics.DeliveryFailures.Inc()
		log.WithError(err).Error("Failed to deliver reminder")
	} else {
		log.Info("Reminder delivered")
	}
	s.metrics.RemindersFired.WithLabelValues(kindLabel(reminder.Recurrence)).Inc()

	s.mu.Lock()
	j, ok := s.jobs[id]
	if !ok || j.seq != seq {
		s.mu.Unlock()
		log.Debug("Reminder job changed during delivery")
		return
	}

	if reminder.Recurrence.OneTime {
		s.removeLocked(id)
		s.mu.Unlock()
		if err := s.consume(reminder); err != nil {
			log.WithError(err).Error("Failed to delete fired one-time reminder")
		}
		return
	}

	next := recurrence.Next(reminder, firedAt)
	j.reminder = reminder
	j.next = next
	s.mu.Unlock()
	log.WithField("next_fire", next.Format(time.RFC3339)).Debug("Reminder re-armed")
}

// armed returns a copy of the reminder of the job armed with seq.
func (s *Scheduler) armed(id int64, seq uint64) (models.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.seq != seq {
		return models.Reminder{}, false
	}
	return j.reminder, true
}

func (s *Scheduler) lookup(id, chatID int64) (*models.Reminder, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
	defer cancel()
	return s.store.Get(ctx, id, chatID)
}

func (s *Scheduler) deliver(r models.Reminder) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
	defer cancel()
	err := s.notifier.Deliver(ctx, r.ChatID, NotificationText(r.Text))
	var derr *models.DeliveryError
	if err != nil && !errors.As(err, &derr) {
		return &models.DeliveryError{ChatID: r.ChatID, Err: err}
	}
	return err
}

func (s *Scheduler) consume(r models.Reminder) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
	defer cancel()
	_, err := s.store.Delete(ctx, r.ID, r.ChatID)
	return err
}

func kindLabel(rec models.Recurrence) string {
	if rec.OneTime {
		return "one_time"
	}
	return "weekly"
}
