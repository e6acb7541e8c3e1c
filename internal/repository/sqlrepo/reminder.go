package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/repository"
)

const reminderColumns = `id, chat_id, text, hour, minute, days, one_time, active, created_at`

type reminderRepository struct {
	db *sql.DB
	rebinder
}

// NewReminderRepository creates a new reminder repository for the given driver name.
func NewReminderRepository(db *sql.DB, driver string) repository.ReminderRepository {
	return &reminderRepository{db: db, rebinder: rebinder(driver)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	var (
		reminder models.Reminder
		days     string
		oneTime  bool
	)
	if err := row.Scan(
		&reminder.ID,
		&reminder.ChatID,
		&reminder.Text,
		&reminder.Hour,
		&reminder.Minute,
		&days,
		&oneTime,
		&reminder.Active,
		&reminder.CreatedAt,
	); err != nil {
		return nil, err
	}

	set, err := models.ParseWeekdaySet(days)
	if err != nil {
		return nil, fmt.Errorf("reminder %d has corrupt days %q: %w", reminder.ID, days, err)
	}
	reminder.Recurrence = models.Recurrence{OneTime: oneTime, Days: set}
	return &reminder, nil
}

func (r *reminderRepository) Insert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	query := `
		INSERT INTO reminders (chat_id, text, hour, minute, days, one_time, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	created := *reminder
	created.Active = true
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, r.rebind(query),
		created.ChatID,
		created.Text,
		created.Hour,
		created.Minute,
		created.Recurrence.Days.String(),
		created.Recurrence.OneTime,
		created.Active,
		created.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reminder: %w", err)
	}

	return &created, nil
}

func (r *reminderRepository) Get(ctx context.Context, id, chatID int64) (*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE id = $1 AND chat_id = $2 AND active = TRUE`

	reminder, err := scanReminder(r.db.QueryRowContext(ctx, r.rebind(query), id, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return reminder, nil
}

func (r *reminderRepository) ListActive(ctx context.Context, chatID int64) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE chat_id = $1 AND active = TRUE
		ORDER BY hour ASC, minute ASC, id ASC`

	return r.list(ctx, r.rebind(query), chatID)
}

func (r *reminderRepository) ListAllActive(ctx context.Context) ([]*models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE active = TRUE
		ORDER BY id ASC`

	return r.list(ctx, query)
}

func (r *reminderRepository) list(ctx context.Context, query string, args ...any) ([]*models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}

	return reminders, rows.Err()
}

func (r *reminderRepository) Update(ctx context.Context, id, chatID int64, patch models.ReminderPatch) (*models.Reminder, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Text != nil {
		add("text", *patch.Text)
	}
	if patch.Hour != nil {
		add("hour", *patch.Hour)
	}
	if patch.Minute != nil {
		add("minute", *patch.Minute)
	}
	if patch.Recurrence != nil {
		add("days", patch.Recurrence.Days.String())
		add("one_time", patch.Recurrence.OneTime)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id, chatID)
	}

	args = append(args, id, chatID)
	query := fmt.Sprintf(`
		UPDATE reminders
		SET %s
		WHERE id = $%d AND chat_id = $%d AND active = TRUE`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	result, err := r.db.ExecContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.Get(ctx, id, chatID)
}

func (r *reminderRepository) Delete(ctx context.Context, id, chatID int64) (int64, error) {
	query := `DELETE FROM reminders WHERE id = $1 AND chat_id = $2`

	result, err := r.db.ExecContext(ctx, r.rebind(query), id, chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
