package recurrence

import (
	"time"

	"github.com/Kerhoff/remindbot/internal/models"
)

// Schedule adapts a reminder to the cron.Schedule interface. A one-time schedule
// is pinned to the instant computed when it was built and reports the zero time
// once that instant has passed, which cron treats as "never again".
type Schedule struct {
	rec    models.Recurrence
	hour   int
	minute int
	at     time.Time
}

// NewSchedule builds the schedule for r as of now.
func NewSchedule(r models.Reminder, now time.Time) *Schedule {
	s := &Schedule{rec: r.Recurrence, hour: r.Hour, minute: r.Minute}
	if r.Recurrence.OneTime {
		s.at = Next(r, now)
	}
	return s
}

// Next returns the next activation strictly after t.
func (s *Schedule) Next(t time.Time) time.Time {
	if s.rec.OneTime {
		if t.Before(s.at) {
			return s.at
		}
		return time.Time{}
	}
	return NextFireTime(s.rec, s.hour, s.minute, t)
}
