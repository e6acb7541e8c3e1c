package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	helpText := `🤖 *Bot commands*

*Basics:*
• /start - Start the bot
• /help - Show this help
• /cancel - Cancel the current operation

*Reminders:*
• /add - Add a reminder
• /list - Show all reminders
• /edit <id> - Edit a reminder
• /delete <id> - Delete a reminder

*Schedule:*
• /schedule - Show the schedule menu
• /today - Reminders for today
• /tomorrow - Reminders for tomorrow
• /week - Reminders for the week
• /month - Reminders for the month

*Photos:*
• /photos - Show saved schedule photos
• /add\_photo - Add a schedule photo

*Quick add:*
Press "➕ Add" and follow the steps, or send
` + "`/add 14:30 Do the homework weekdays`" + `
_Days: weekdays, weekend, daily, once or a list like mon,wed,fri_`

	h.logger.WithField("chat_id", cmd.Chat).Info("Sent help message")

	return chat.Reply{Text: helpText, Markdown: true}, nil
}
