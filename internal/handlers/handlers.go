// Package handlers turns recognized commands and inbound events into replies.
// Handlers never see platform types; the transport adapter feeds them chat values.
package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/models"
)

// CommandHandler defines the interface for command handlers.
type CommandHandler interface {
	Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error)
}

// SelectionHandler handles button presses that do not belong to a conversation session.
type SelectionHandler interface {
	HandleSelection(ctx context.Context, ev chat.SelectionEvent) (chat.Reply, error)
}

// ReminderService is the application layer as seen by the command handlers.
type ReminderService interface {
	QuickAdd(ctx context.Context, chatID int64, args string) (*models.Reminder, error)
	ListReminders(ctx context.Context, chatID int64) ([]*models.Reminder, error)
	DeleteReminder(ctx context.Context, id, chatID int64) error
	Schedule(ctx context.Context, chatID int64, period models.SchedulePeriod) (*models.ScheduleView, error)
	ListPhotos(ctx context.Context, chatID int64) ([]*models.SchedulePhoto, error)
}

const (
	msgInternalError = "❌ An error occurred while processing your command. Please try again."
	msgNotFound      = "❌ Reminder not found."
	msgUnknown       = "🤔 I don't understand that.\nUse the menu buttons or /help."
	msgExpired       = "⌛ This menu has expired. Start again from the main menu."
)

// parseID reads a reminder id argument.
func parseID(args string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
