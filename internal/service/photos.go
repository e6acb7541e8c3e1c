package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/models"
)

// SavePhoto stores a schedule photo for chatID.
func (s *Service) SavePhoto(ctx context.Context, chatID int64, imageRef string, period models.PeriodTag) (*models.SchedulePhoto, error) {
	if imageRef == "" {
		return nil, &models.ValidationError{Field: "image", Message: "a photo is required"}
	}
	if _, err := models.ParsePeriodTag(string(period)); err != nil {
		return nil, err
	}

	photo, err := s.Photos.Insert(ctx, &models.SchedulePhoto{
		ChatID:      chatID,
		ImageRef:    imageRef,
		Period:      period,
		Description: fmt.Sprintf("Schedule (%s)", period),
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, storageErr("insert schedule photo", err)
	}

	s.logger.WithFields(logrus.Fields{"chat_id": chatID, "photo_id": photo.ID}).Info("Schedule photo saved")
	return photo, nil
}

// ListPhotos returns the most recent schedule photos of chatID, newest first.
func (s *Service) ListPhotos(ctx context.Context, chatID int64) ([]*models.SchedulePhoto, error) {
	photos, err := s.Photos.ListRecent(ctx, chatID, s.photoLimit)
	if err != nil {
		return nil, storageErr("list schedule photos", err)
	}
	return photos, nil
}
