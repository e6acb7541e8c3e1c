package models

import (
	"fmt"
	"time"
)

// PeriodTag names the period a schedule photo covers.
type PeriodTag string

const (
	PeriodDay   PeriodTag = "day"
	PeriodWeek  PeriodTag = "week"
	PeriodMonth PeriodTag = "month"
)

// ParsePeriodTag validates a period tag.
func ParsePeriodTag(s string) (PeriodTag, error) {
	switch p := PeriodTag(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unknown period %q", s)}
}

// SchedulePhoto is a stored schedule image. It is immutable once created.
type SchedulePhoto struct {
	ID          int64     `json:"id" db:"id"`
	ChatID      int64     `json:"chat_id" db:"chat_id"`
	ImageRef    string    `json:"image_ref" db:"photo_file_id"`
	Period      PeriodTag `json:"period" db:"schedule_type"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
