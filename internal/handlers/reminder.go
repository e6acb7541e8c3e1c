package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/conversation"
	"github.com/Kerhoff/remindbot/internal/format"
	"github.com/Kerhoff/remindbot/internal/models"
)

// AddHandler handles /add. Without arguments it opens the add conversation,
// with arguments it creates the reminder in one step.
type AddHandler struct {
	svc     ReminderService
	machine *conversation.Machine
	logger  *logrus.Logger
}

func NewAddHandler(svc ReminderService, machine *conversation.Machine, logger *logrus.Logger) *AddHandler {
	return &AddHandler{svc: svc, machine: machine, logger: logger}
}

func (h *AddHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	if cmd.Args == "" {
		return h.machine.StartAdd(cmd.Chat), nil
	}

	reminder, err := h.svc.QuickAdd(ctx, cmd.Chat, cmd.Args)
	if err != nil {
		if ve, ok := models.IsValidation(err); ok {
			return chat.Text(fmt.Sprintf("❌ %s\nFormat: /add 14:30 Do the homework weekdays", ve.Message)), nil
		}
		return chat.Reply{}, fmt.Errorf("quick add: %w", err)
	}

	return chat.Text(format.ReminderCard("✅ Reminder added!", reminder)), nil
}

// ListHandler handles /list
type ListHandler struct {
	svc    ReminderService
	logger *logrus.Logger
}

func NewListHandler(svc ReminderService, logger *logrus.Logger) *ListHandler {
	return &ListHandler{svc: svc, logger: logger}
}

func (h *ListHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	reminders, err := h.svc.ListReminders(ctx, cmd.Chat)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("list reminders: %w", err)
	}
	return chat.Reply{Text: format.ReminderList(reminders), Markdown: true}, nil
}

// EditHandler handles /edit <id>
type EditHandler struct {
	machine *conversation.Machine
	logger  *logrus.Logger
}

func NewEditHandler(machine *conversation.Machine, logger *logrus.Logger) *EditHandler {
	return &EditHandler{machine: machine, logger: logger}
}

func (h *EditHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	id, ok := parseID(cmd.Args)
	if !ok {
		return chat.Text("❌ Specify the reminder ID: /edit 123"), nil
	}

	reply, err := h.machine.StartEdit(ctx, cmd.Chat, id)
	if errors.Is(err, models.ErrNotFound) {
		return chat.Text(msgNotFound), nil
	}
	if err != nil {
		return chat.Reply{}, fmt.Errorf("start edit of reminder %d: %w", id, err)
	}
	return reply, nil
}

// DeleteHandler handles /delete <id>
type DeleteHandler struct {
	svc    ReminderService
	logger *logrus.Logger
}

func NewDeleteHandler(svc ReminderService, logger *logrus.Logger) *DeleteHandler {
	return &DeleteHandler{svc: svc, logger: logger}
}

func (h *DeleteHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	id, ok := parseID(cmd.Args)
	if !ok {
		return chat.Text("❌ Specify the reminder ID: /delete 123"), nil
	}

	err := h.svc.DeleteReminder(ctx, id, cmd.Chat)
	if errors.Is(err, models.ErrNotFound) {
		return chat.Text(msgNotFound), nil
	}
	if err != nil {
		return chat.Reply{}, fmt.Errorf("delete reminder %d: %w", id, err)
	}

	return chat.Text(fmt.Sprintf("✅ Reminder %d deleted.", id)), nil
}
