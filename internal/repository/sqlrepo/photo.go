package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/repository"
)

type photoRepository struct {
	db *sql.DB
	rebinder
}

// NewPhotoRepository creates a new schedule photo repository for the given driver name.
func NewPhotoRepository(db *sql.DB, driver string) repository.PhotoRepository {
	return &photoRepository{db: db, rebinder: rebinder(driver)}
}

func (r *photoRepository) Insert(ctx context.Context, photo *models.SchedulePhoto) (*models.SchedulePhoto, error) {
	query := `
		INSERT INTO schedule_photos (chat_id, photo_file_id, schedule_type, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	created := *photo
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	err := r.db.QueryRowContext(ctx, r.rebind(query),
		created.ChatID,
		created.ImageRef,
		string(created.Period),
		created.Description,
		created.CreatedAt,
	).Scan(&created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert schedule photo: %w", err)
	}

	return &created, nil
}

func (r *photoRepository) ListRecent(ctx context.Context, chatID int64, limit int) ([]*models.SchedulePhoto, error) {
	query := `
		SELECT id, chat_id, photo_file_id, schedule_type, description, created_at
		FROM schedule_photos
		WHERE chat_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.SchedulePhoto
	for rows.Next() {
		var (
			photo  models.SchedulePhoto
			period string
		)
		if err := rows.Scan(
			&photo.ID,
			&photo.ChatID,
			&photo.ImageRef,
			&period,
			&photo.Description,
			&photo.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule photo: %w", err)
		}
		photo.Period = models.PeriodTag(period)
		photos = append(photos, &photo)
	}

	return photos, rows.Err()
}
