package models

import "strings"

// ParseDaySpec parses a typed day specification: a preset name ("weekdays",
// "weekend", "daily"), "once", or comma-joined weekday codes.
func ParseDaySpec(s string) (Recurrence, error) {
	errSpec := &ValidationError{Field: "days", Message: "use weekdays, weekend, daily, once or a list like mon,wed,fri"}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekdays":
		return Weekly(Weekdays), nil
	case "weekend", "weekends":
		return Weekly(Weekend), nil
	case "daily", "everyday":
		return Weekly(AllDays), nil
	case "once":
		return OneTime(), nil
	case "":
		return Recurrence{}, errSpec
	}

	set, err := ParseWeekdaySet(s)
	if err != nil || set.Empty() {
		return Recurrence{}, errSpec
	}
	return Weekly(set), nil
}
