package sqlrepo_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/remindbot/internal/config"
	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/repository"
	"github.com/Kerhoff/remindbot/internal/repository/sqlrepo"
)

func openTestDB(t *testing.T) *config.Database {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	db, err := config.NewDatabase("sqlite3://"+filepath.Join(t.TempDir(), "reminders.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func newReminder(chatID int64, text string, hour, minute int, rec models.Recurrence) *models.Reminder {
	return &models.Reminder{ChatID: chatID, Text: text, Hour: hour, Minute: minute, Recurrence: rec}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Migrate())
}

func TestReminderRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	created, err := repo.Insert(ctx, newReminder(42, "Buy milk", 8, 15, models.Weekly(models.Weekdays)))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.Active)

	got, err := repo.Get(ctx, created.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Text)
	assert.Equal(t, 8, got.Hour)
	assert.Equal(t, 15, got.Minute)
	assert.Equal(t, models.Weekly(models.Weekdays), got.Recurrence)
	assert.True(t, got.Active)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)
}

func TestReminderRepository_OneTimeRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	created, err := repo.Insert(ctx, newReminder(1, "Dentist", 17, 0, models.OneTime()))
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.True(t, got.Recurrence.OneTime)
	assert.True(t, got.Recurrence.Days.Empty())
}

func TestReminderRepository_GetIsScopedByChat(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	created, err := repo.Insert(ctx, newReminder(1, "Private", 9, 0, models.OneTime()))
	require.NoError(t, err)

	_, err = repo.Get(ctx, created.ID, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReminderRepository_ListActiveOrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	for _, r := range []*models.Reminder{
		newReminder(1, "late", 21, 0, models.Weekly(models.AllDays)),
		newReminder(2, "other chat", 6, 0, models.Weekly(models.AllDays)),
		newReminder(1, "early", 7, 30, models.Weekly(models.Weekend)),
		newReminder(1, "early minute", 7, 5, models.OneTime()),
	} {
		_, err := repo.Insert(ctx, r)
		require.NoError(t, err)
	}

	list, err := repo.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "early minute", list[0].Text)
	assert.Equal(t, "early", list[1].Text)
	assert.Equal(t, "late", list[2].Text)
	for _, r := range list {
		assert.Equal(t, int64(1), r.ChatID)
	}

	all, err := repo.ListAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestReminderRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	created, err := repo.Insert(ctx, newReminder(1, "Stretch", 10, 0, models.Weekly(models.Weekdays)))
	require.NoError(t, err)

	text := "Stretch more"
	updated, err := repo.Update(ctx, created.ID, 1, models.ReminderPatch{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, "Stretch more", updated.Text)
	assert.Equal(t, 10, updated.Hour)

	hour, minute := 11, 45
	rec := models.Weekly(models.Weekend)
	updated, err = repo.Update(ctx, created.ID, 1, models.ReminderPatch{Hour: &hour, Minute: &minute, Recurrence: &rec})
	require.NoError(t, err)
	assert.Equal(t, 11, updated.Hour)
	assert.Equal(t, 45, updated.Minute)
	assert.Equal(t, rec, updated.Recurrence)
	assert.Equal(t, "Stretch more", updated.Text)

	_, err = repo.Update(ctx, created.ID, 2, models.ReminderPatch{Text: &text})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReminderRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewReminderRepository(db.DB, db.Driver)

	created, err := repo.Insert(ctx, newReminder(1, "Water plants", 19, 0, models.Weekly(models.AllDays)))
	require.NoError(t, err)

	n, err := repo.Delete(ctx, created.ID, 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Delete(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, created.ID, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPhotoRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := sqlrepo.NewPhotoRepository(db.DB, db.Driver)

	base := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := repo.Insert(ctx, &models.SchedulePhoto{
			ChatID:      1,
			ImageRef:    "file-" + string(rune('a'+i)),
			Period:      models.PeriodWeek,
			Description: "Schedule (week)",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, &models.SchedulePhoto{ChatID: 2, ImageRef: "other", Period: models.PeriodDay, CreatedAt: base})
	require.NoError(t, err)

	photos, err := repo.ListRecent(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, photos, 10)
	assert.Equal(t, "file-l", photos[0].ImageRef)
	assert.Equal(t, "file-c", photos[9].ImageRef)
	assert.Equal(t, models.PeriodWeek, photos[0].Period)
	for _, p := range photos {
		assert.Equal(t, int64(1), p.ChatID)
	}
}
