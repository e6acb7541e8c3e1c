package service

import (
	"context"

	"github.com/Kerhoff/remindbot/internal/models"
	"github.com/Kerhoff/remindbot/internal/recurrence"
)

// Schedule builds a schedule view of chatID's reminders. Today and tomorrow
// hold one day, the week view the seven days starting today, and the month view
// every reminder firing between today and the end of the month with its count.
func (s *Service) Schedule(ctx context.Context, chatID int64, period models.SchedulePeriod) (*models.ScheduleView, error) {
	reminders, err := s.ListReminders(ctx, chatID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := recurrence.StartOfDay(now)
	view := &models.ScheduleView{Period: period}

	switch period {
	case models.ScheduleToday:
		view.From, view.To = today, today
	case models.ScheduleTomorrow:
		view.From = today.AddDate(0, 0, 1)
		view.To = view.From
	case models.ScheduleWeek:
		view.From, view.To = today, today.AddDate(0, 0, 6)
	case models.ScheduleMonth:
		view.From, view.To = today, recurrence.EndOfMonth(now)
		for _, r := range reminders {
			if n := recurrence.CountOccurrences(*r, view.From, view.To, now); n > 0 {
				view.Entries = append(view.Entries, models.ScheduleEntry{Reminder: r, Occurrences: n})
			}
		}
		return view, nil
	default:
		return nil, &models.ValidationError{Field: "period", Message: "unknown schedule period " + string(period)}
	}

	for day := view.From; !day.After(view.To); day = day.AddDate(0, 0, 1) {
		sd := models.ScheduleDay{Date: day}
		for _, r := range reminders {
			if recurrence.OccursOn(*r, day, now) {
				sd.Reminders = append(sd.Reminders, r)
			}
		}
		view.Days = append(view.Days, sd)
	}
	return view, nil
}
