// Package service is the application layer: it keeps the reminder store and
// the scheduler in step and builds the read-only schedule views.
package service

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/repository"
)

// Scheduler is the part of the scheduler engine the service drives.
type Scheduler interface {
	Arm(reminder models.Reminder) (time.Time, error)
	Cancel(id int64) bool
	NextFire(id int64) (time.Time, bool)
}

// Service is the central business logic layer that holds the repositories and
// the scheduler and provides high-level methods for the handlers and the API.
type Service struct {
	logger     *logrus.Logger
	Reminders  repository.ReminderRepository
	Photos     repository.PhotoRepository
	scheduler  Scheduler
	now        func() time.Time
	photoLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for the schedule views.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPhotoLimit sets how many photos ListPhotos returns.
func WithPhotoLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.photoLimit = n
		}
	}
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	reminders repository.ReminderRepository,
	photos repository.PhotoRepository,
	scheduler Scheduler,
	opts ...Option,
) *Service {
	s := &Service{
		logger:     logger,
		Reminders:  reminders,
		Photos:     photos,
		scheduler:  scheduler,
		now:        time.Now,
		photoLimit: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storageErr wraps a repository failure, passing not-found through untouched.
func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return &models.StorageError{Op: op, Err: err}
}
