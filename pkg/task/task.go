package task

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Priority buckets for a task. An empty value means unprioritized.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the three known buckets or empty.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

var scheduledTimeRe = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)

// ValidScheduledTime reports whether s is a 24-hour "HH:mm" string.
// The empty string is valid and means "all day".
func ValidScheduledTime(s string) bool {
	if s == "" {
		return true
	}
	if !scheduledTimeRe.MatchString(s) {
		return false
	}
	// The pattern admits 24-29 in the hour slot; reject those.
	return s[0] != '2' || s[1] <= '3'
}

// Task is the core entity. The JSON shape doubles as the export file format,
// so the field names are frozen.
type Task struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Completed     bool      `json:"completed"`
	Date          time.Time `json:"date"`
	ScheduledTime string    `json:"scheduled_time,omitempty"`
	Priority      Priority  `json:"priority,omitempty"`
	Description   string    `json:"description,omitempty"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Set only after a successful calendar create.
	GCalEventID    string `json:"gcalEventId,omitempty"`
	SyncedWithGCal bool   `json:"syncedWithGCal,omitempty"`
}

// New creates a task anchored to the given calendar day.
func New(text string, date time.Time, priority Priority) Task {
	now := time.Now()
	return Task{
		ID:        uuid.NewString(),
		Text:      text,
		Date:      date,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DayKey formats t's date as a local calendar day string. Two tasks are on
// the same day iff their keys are equal; comparison is by calendar day, not
// by instant.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return DayKey(a) == DayKey(b)
}
