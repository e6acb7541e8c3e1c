package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
)

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	welcomeText := `🤖 Hi! I'm your personal reminder bot!

I can:
➕ Create reminders
✏️ Edit them
📅 Show your schedule
📸 Keep photos of your schedule

Use the buttons below or the commands from /help:`

	h.logger.WithField("chat_id", cmd.Chat).Info("Sent start message")

	return chat.Reply{Text: welcomeText, MainMenu: true}, nil
}
