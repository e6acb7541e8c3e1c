package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays, one bit per time.Weekday.
type WeekdaySet uint8

// weekdayCodes are the storage codes, indexed by time.Weekday.
var weekdayCodes = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// weekOrder lists weekdays Monday first, the order used for display and storage.
var weekOrder = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

const (
	Weekdays WeekdaySet = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	Weekend  WeekdaySet = 1<<time.Saturday | 1<<time.Sunday
	AllDays  WeekdaySet = Weekdays | Weekend
)

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<d) != 0 }

func (s WeekdaySet) With(d time.Weekday) WeekdaySet { return s | 1<<d }

func (s WeekdaySet) Without(d time.Weekday) WeekdaySet { return s &^ (1 << d) }

// Toggle flips membership of d.
func (s WeekdaySet) Toggle(d time.Weekday) WeekdaySet { return s ^ 1<<d }

func (s WeekdaySet) Empty() bool { return s&AllDays == 0 }

// Days returns the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for _, d := range weekOrder {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as comma-joined weekday codes ("mon,wed,fri").
func (s WeekdaySet) String() string {
	days := s.Days()
	codes := make([]string, len(days))
	for i, d := range days {
		codes[i] = weekdayCodes[d]
	}
	return strings.Join(codes, ",")
}

// WeekdayCode returns the three letter code of d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d]
}

// ParseWeekday parses a weekday code or English weekday name.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for i, code := range weekdayCodes {
			if s[:3] == code && strings.HasPrefix(strings.ToLower(time.Weekday(i).String()), s) {
				return time.Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParseWeekdaySet parses comma-joined weekday codes. An empty string yields an empty set.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	var set WeekdaySet
	if strings.TrimSpace(s) == "" {
		return set, nil
	}
	for _, part := range strings.Split(s, ",") {
		d, err := ParseWeekday(part)
		if err != nil {
			return 0, err
		}
		set = set.With(d)
	}
	return set, nil
}

// Recurrence is either a one-shot or a weekly pattern over a non-empty weekday set.
type Recurrence struct {
	OneTime bool
	Days    WeekdaySet
}

// OneTime returns the one-shot recurrence.
func OneTime() Recurrence { return Recurrence{OneTime: true} }

// Weekly returns a weekly recurrence on the given days.
func Weekly(days WeekdaySet) Recurrence { return Recurrence{Days: days} }

// Validate reports whether the recurrence is well formed.
func (r Recurrence) Validate() error {
	if r.OneTime {
		if !r.Days.Empty() {
			return &ValidationError{Field: "days", Message: "a one-time reminder has no days"}
		}
		return nil
	}
	if r.Days.Empty() {
		return &ValidationError{Field: "days", Message: "select at least one day"}
	}
	return nil
}

func (r Recurrence) String() string {
	if r.OneTime {
		return "once"
	}
	return r.Days.String()
}

// MarshalText encodes the recurrence as "once" or weekday codes.
func (r Recurrence) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts anything ParseDaySpec does.
func (r *Recurrence) UnmarshalText(b []byte) error {
	rec, err := ParseDaySpec(string(b))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// Reminder is a persisted reminder record.
type Reminder struct {
	ID         int64      `json:"id" db:"id"`
	ChatID     int64      `json:"chat_id" db:"chat_id"`
	Text       string     `json:"text" db:"text"`
	Hour       int        `json:"hour" db:"hour"`
	Minute     int        `json:"minute" db:"minute"`
	Recurrence Recurrence `json:"recurrence" db:"-"`
	Active     bool       `json:"active" db:"active"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks the fields a reminder must satisfy before it is stored.
func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Field: "text", Message: "reminder text must not be empty"}
	}
	if err := ValidateTime(r.Hour, r.Minute); err != nil {
		return err
	}
	return r.Recurrence.Validate()
}

// TimeOfDay formats the reminder time as HH:MM.
func (r *Reminder) TimeOfDay() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// ValidateTime checks wall-clock ranges.
func ValidateTime(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return &ValidationError{Field: "time", Message: "time must be HH:MM between 00:00 and 23:59"}
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" (one or two digit hour) into hour and minute.
func ParseTimeOfDay(s string) (int, int, error) {
	errFormat := &ValidationError{Field: "time", Message: "use the HH:MM format, e.g. 14:30"}

	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !isDigits(h) || !isDigits(m) {
		return 0, 0, errFormat
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, errFormat
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, errFormat
	}
	if err := ValidateTime(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ReminderPatch replaces individual fields of a reminder. Nil fields are left unchanged.
type ReminderPatch struct {
	Text       *string
	Hour       *int
	Minute     *int
	Recurrence *Recurrence
}

// Reschedules reports whether applying the patch changes the reminder's timing.
func (p ReminderPatch) Reschedules() bool {
	return p.Hour != nil || p.Minute != nil || p.Recurrence != nil
}

// Apply returns a copy of r with the patch applied.
func (p ReminderPatch) Apply(r Reminder) Reminder {
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.Hour != nil {
		r.Hour = *p.Hour
	}
	if p.Minute != nil {
		r.Minute = *p.Minute
	}
	if p.Recurrence != nil {
		r.Recurrence = *p.Recurrence
	}
	return r
}
