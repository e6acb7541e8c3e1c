package models

import (
	"fmt"
	"time"
)

// SchedulePeriod selects a schedule view.
type SchedulePeriod string

const (
	ScheduleToday    SchedulePeriod = "today"
	ScheduleTomorrow SchedulePeriod = "tomorrow"
	ScheduleWeek     SchedulePeriod = "week"
	ScheduleMonth    SchedulePeriod = "month"
)

// ParseSchedulePeriod validates a schedule period name.
func ParseSchedulePeriod(s string) (SchedulePeriod, error) {
	switch p := SchedulePeriod(s); p {
	case ScheduleToday, ScheduleTomorrow, ScheduleWeek, ScheduleMonth:
		return p, nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown schedule period %q", s)}
}

// ScheduleDay lists the reminders firing on one calendar day, ordered by time.
type ScheduleDay struct {
	Date      time.Time   `json:"date"`
	Reminders []*Reminder `json:"reminders"`
}

// ScheduleEntry is a reminder with the number of days it fires within a view.
type ScheduleEntry struct {
	Reminder    *Reminder `json:"reminder"`
	Occurrences int       `json:"occurrences"`
}

// ScheduleView is a read-only projection of a chat's reminders over a period.
// Day-based periods fill Days; the month view fills Entries.
type ScheduleView struct {
	Period  SchedulePeriod  `json:"period"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Days    []ScheduleDay   `json:"days,omitempty"`
	Entries []ScheduleEntry `json:"entries,omitempty"`
}

// Empty reports whether nothing fires in the view.
func (v *ScheduleView) Empty() bool {
	for _, d := range v.Days {
		if len(d.Reminders) > 0 {
			return false
		}
	}
	return len(v.Entries) == 0
}
