// Package recurrence computes when reminders fire. Every function here is pure:
// the caller supplies "now", and times are evaluated in now's location.
package recurrence

import (
	"time"

	"github.com/Kerhoff/remindbot/internal/models"
)

// Daily matches every day of the week.
var Daily = models.Weekly(models.AllDays)

// NextFireTime returns the first instant strictly after now at hour:minute that the
// recurrence allows.
//
// A one-time reminder whose time has already passed today fires tomorrow, never
// immediately. A weekly reminder fires on the nearest listed weekday, today only if
// hour:minute is still ahead. The zero time is returned for a weekly recurrence with
// no days.
func NextFireTime(rec models.Recurrence, hour, minute int, now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if rec.OneTime {
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate
	}

	for d := 0; d <= 7; d++ {
		c := candidate.AddDate(0, 0, d)
		if !rec.Days.Has(c.Weekday()) {
			continue
		}
		if d == 0 && !c.After(now) {
			continue
		}
		return c
	}
	return time.Time{}
}

// Next is NextFireTime for a stored reminder.
func Next(r models.Reminder, now time.Time) time.Time {
	return NextFireTime(r.Recurrence, r.Hour, r.Minute, now)
}

// MatchesDay reports whether a weekly recurrence lists date's weekday. One-time
// recurrences carry no weekday and never match; use OccursOn for them.
func MatchesDay(rec models.Recurrence, date time.Time) bool {
	if rec.OneTime {
		return false
	}
	return rec.Days.Has(date.Weekday())
}

// OccursOn reports whether r fires at some point on date's calendar day, as seen from now.
// A one-time reminder occurs only on the day of its next fire time.
func OccursOn(r models.Reminder, date, now time.Time) bool {
	if r.Recurrence.OneTime {
		return sameDay(Next(r, now), date)
	}
	return MatchesDay(r.Recurrence, date)
}

// CountOccurrences counts the calendar days in [from, to] on which r fires.
func CountOccurrences(r models.Reminder, from, to, now time.Time) int {
	n := 0
	for day := StartOfDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		if OccursOn(r, day, now) {
			n++
		}
	}
	return n
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last calendar day of t's month at midnight.
func EndOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
