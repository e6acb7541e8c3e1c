package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/format"
	"github.com/Kerhoff/remindbot/internal/models"
)

// ScheduleTagPrefix prefixes the schedule menu selections.
const ScheduleTagPrefix = "schedule_"

// ScheduleHandler handles /schedule and the per-period commands, and the
// schedule menu buttons.
type ScheduleHandler struct {
	svc    ReminderService
	logger *logrus.Logger
}

func NewScheduleHandler(svc ReminderService, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

func (h *ScheduleHandler) Handle(ctx context.Context, cmd chat.Command) (chat.Reply, error) {
	if cmd.Kind == chat.CommandSchedule {
		return scheduleMenu(), nil
	}
	return h.render(ctx, cmd.Chat, models.SchedulePeriod(cmd.Kind), false)
}

func (h *ScheduleHandler) HandleSelection(ctx context.Context, ev chat.SelectionEvent) (chat.Reply, error) {
	return h.render(ctx, ev.Chat, models.SchedulePeriod(strings.TrimPrefix(ev.Tag, ScheduleTagPrefix)), true)
}

func (h *ScheduleHandler) render(ctx context.Context, chatID int64, raw models.SchedulePeriod, replace bool) (chat.Reply, error) {
	period, err := models.ParseSchedulePeriod(string(raw))
	if err != nil {
		return scheduleMenu(), nil
	}

	view, err := h.svc.Schedule(ctx, chatID, period)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("build %s schedule: %w", period, err)
	}
	return chat.Reply{Text: format.Schedule(view), Replace: replace}, nil
}

func scheduleMenu() chat.Reply {
	tag := func(p models.SchedulePeriod) string { return ScheduleTagPrefix + string(p) }
	return chat.Reply{
		Text: "📅 Which schedule do you want to see?",
		Buttons: [][]chat.Button{
			chat.Row(
				chat.Button{Label: "📅 Today", Tag: tag(models.ScheduleToday)},
				chat.Button{Label: "📆 Tomorrow", Tag: tag(models.ScheduleTomorrow)},
			),
			chat.Row(
				chat.Button{Label: "🗓️ This week", Tag: tag(models.ScheduleWeek)},
				chat.Button{Label: "📊 This month", Tag: tag(models.ScheduleMonth)},
			),
		},
	}
}
