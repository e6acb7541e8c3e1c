package repository

import (
	"context"

	"github.com/Kerhoff/remindbot/internal/models"
)

// ErrNotFound is returned by scoped lookups and mutations when no matching row exists.
var ErrNotFound = models.ErrNotFound

// ReminderRepository defines the interface for reminder data operations.
// Every method except ListAllActive is scoped by chat ID.
type ReminderRepository interface {
	Insert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	Get(ctx context.Context, id, chatID int64) (*models.Reminder, error)
	ListActive(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	Update(ctx context.Context, id, chatID int64, patch models.ReminderPatch) (*models.Reminder, error)
	Delete(ctx context.Context, id, chatID int64) (int64, error)
	ListAllActive(ctx context.Context) ([]*models.Reminder, error)
}

// PhotoRepository defines the interface for schedule photo operations
type PhotoRepository interface {
	Insert(ctx context.Context, photo *models.SchedulePhoto) (*models.SchedulePhoto, error)
	ListRecent(ctx context.Context, chatID int64, limit int) ([]*models.SchedulePhoto, error)
}
