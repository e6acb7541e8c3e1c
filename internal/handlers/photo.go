package handlers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/conversation"
	"github.com/Kerhoff/remindbot/internal/format"
)

// AddPhotoHandler handles /add_photo
type AddPhotoHandler struct {
	machine *conversation.Machine
}

func NewAddPhotoHandler(machine *conversation.Machine) *AddPhotoHandler {
	return &AddPhotoHandler{machine: machine}
}

func (h *AddPhotoHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	return h.machine.StartPhoto(cmd.Chat), nil
}

// PhotosHandler handles /photos. The photos are sent directly through the
// notifier; the reply only carries the heading.
type PhotosHandler struct {
	svc      ReminderService
	notifier chat.Notifier
	logger   *logrus.Logger
}

func NewPhotosHandler(svc ReminderService, notifier chat.Notifier, logger *logrus.Logger) *PhotosHandler {
	return &PhotosHandler{svc: svc, notifier: notifier, logger: logger}
}

func (h *PhotosHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	photos, err := h.svc.ListPhotos(ctx, cmd.Chat)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("list photos: %w", err)
	}
	if len(photos) == 0 {
		return chat.Text("📭 You have no saved schedule photos."), nil
	}

	if err := h.notifier.Deliver(ctx, cmd.Chat, fmt.Sprintf("📸 Your saved schedule photos (%d):", len(photos))); err != nil {
		return chat.Reply{}, fmt.Errorf("send photos heading: %w", err)
	}

	failed := 0
	for _, p := range photos {
		if err := h.notifier.SendImage(ctx, cmd.Chat, p.ImageRef, format.PhotoCaption(p)); err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"chat_id":  cmd.Chat,
				"photo_id": p.ID,
			}).Error("Failed to send schedule photo")
			if err := h.notifier.Deliver(ctx, cmd.Chat, fmt.Sprintf("❌ Could not send photo ID %d.", p.ID)); err != nil {
				h.logger.WithError(err).Warn("Failed to report photo send failure")
			}
			failed++
		}
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": cmd.Chat,
		"sent":    len(photos) - failed,
		"failed":  failed,
	}).Info("Sent schedule photos")
	return chat.Reply{}, nil
}
