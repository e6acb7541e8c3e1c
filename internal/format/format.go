// Package format renders reminders and schedules as chat text.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kerhoff/remindbot/internal/models"
)

var dayEmoji = map[time.Weekday]string{
	time.Monday:    "🟢",
	time.Tuesday:   "🟡",
	time.Wednesday: "🔵",
	time.Thursday:  "🟠",
	time.Friday:    "🔴",
	time.Saturday:  "🟣",
	time.Sunday:    "⚪",
}

// DaysEmoji renders one colored dot per weekday in the set.
func DaysEmoji(set models.WeekdaySet) string {
	days := set.Days()
	dots := make([]string, len(days))
	for i, d := range days {
		dots[i] = dayEmoji[d]
	}
	return strings.Join(dots, " ")
}

// DaysLabel names a recurrence the way the day picker does.
func DaysLabel(rec models.Recurrence) string {
	if rec.OneTime {
		return "Once"
	}
	switch rec.Days {
	case models.AllDays:
		return "Every day"
	case models.Weekdays:
		return "Weekdays"
	case models.Weekend:
		return "Weekend"
	}
	return rec.Days.String()
}

// Days renders the label followed by the day dots.
func Days(rec models.Recurrence) string {
	if rec.OneTime {
		return DaysLabel(rec)
	}
	return DaysLabel(rec) + " " + DaysEmoji(rec.Days)
}

// ReminderCard is the confirmation shown after a reminder is created or changed.
func ReminderCard(title string, r *models.Reminder) string {
	return fmt.Sprintf("%s\n\n📝 Text: %s\n⏰ Time: %s\n📅 Days: %s", title, r.Text, r.TimeOfDay(), Days(r.Recurrence))
}

// ReminderList renders the /list view.
func ReminderList(reminders []*models.Reminder) string {
	if len(reminders) == 0 {
		return "📭 You have no active reminders."
	}

	var sb strings.Builder
	sb.WriteString("📝 *Your reminders:*\n\n")
	for _, r := range reminders {
		sb.WriteString(fmt.Sprintf("🔹 *ID %d:* %s\n", r.ID, EscapeMarkdown(r.Text)))
		sb.WriteString(fmt.Sprintf("⏰ %s %s\n", r.TimeOfDay(), DaysEmoji(r.Recurrence.Days)))
		sb.WriteString(fmt.Sprintf("📅 %s\n\n", DaysLabel(r.Recurrence)))
	}
	sb.WriteString("To edit: /edit <ID>\nTo delete: /delete <ID>")
	return sb.String()
}

// EditPrompt renders the edit menu header for a reminder.
func EditPrompt(r *models.Reminder) string {
	return fmt.Sprintf("✏️ Editing reminder ID %d:\n\n📝 Text: %s\n⏰ Time: %s\n📅 Days: %s\n\nWhat do you want to change?",
		r.ID, r.Text, r.TimeOfDay(), Days(r.Recurrence))
}

// PhotoCaption is the caption sent with a stored schedule photo.
func PhotoCaption(p *models.SchedulePhoto) string {
	return fmt.Sprintf("📅 %s (ID: %d)\n📆 %s", p.Description, p.ID, p.CreatedAt.Format("02.01.2006 15:04"))
}

// PeriodName is the human name of a photo period.
func PeriodName(p models.PeriodTag) string {
	switch p {
	case models.PeriodDay:
		return "day"
	case models.PeriodWeek:
		return "week"
	case models.PeriodMonth:
		return "month"
	}
	return string(p)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes user text for Telegram's legacy Markdown mode.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

var scheduleTitles = map[models.SchedulePeriod]string{
	models.ScheduleToday:    "📅 Schedule for today",
	models.ScheduleTomorrow: "📆 Schedule for tomorrow",
	models.ScheduleWeek:     "🗓️ Schedule for the week",
	models.ScheduleMonth:    "📊 Schedule for the month",
}

// Schedule renders a schedule view.
func Schedule(v *models.ScheduleView) string {
	title := scheduleTitles[v.Period]
	if v.Period == models.ScheduleToday || v.Period == models.ScheduleTomorrow {
		title += fmt.Sprintf(" (%s)", v.From.Format("02.01.2006"))
	}
	if v.Empty() {
		return title + "\n\n📭 No reminders scheduled."
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")

	switch v.Period {
	case models.ScheduleMonth:
		for _, e := range v.Entries {
			writeEntry(&sb, e.Reminder)
			sb.WriteString(fmt.Sprintf("🔁 %d time(s) until %s\n\n", e.Occurrences, v.To.Format("02.01")))
		}
	case models.ScheduleWeek:
		for _, d := range v.Days {
			if len(d.Reminders) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", dayEmoji[d.Date.Weekday()], d.Date.Format("Mon 02.01")))
			for _, r := range d.Reminders {
				sb.WriteString(fmt.Sprintf("   ⏰ %s - %s\n", r.TimeOfDay(), r.Text))
			}
			sb.WriteString("\n")
		}
	default:
		for _, d := range v.Days {
			for _, r := range d.Reminders {
				writeEntry(&sb, r)
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeEntry(sb *strings.Builder, r *models.Reminder) {
	sb.WriteString(fmt.Sprintf("⏰ %s - %s\n", r.TimeOfDay(), r.Text))
	sb.WriteString(fmt.Sprintf("📅 %s\n", Days(r.Recurrence)))
}
