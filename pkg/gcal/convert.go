package gcal

import (
	"fmt"
	"strconv"
	"time"

	"github.com/koushikyemula/cue/pkg/task"
	"google.golang.org/api/calendar/v3"
)

// taskIDProperty is the private extended property linking an event back to
// its task, so events stay matchable even if the stored event id is lost.
const taskIDProperty = "cue_task_id"

const eventDuration = time.Hour

// Google Calendar palette ids per priority bucket.
var priorityColors = map[task.Priority]string{
	task.PriorityHigh:   "11", // tomato
	task.PriorityMedium: "5",  // banana
	task.PriorityLow:    "2",  // sage
}

// EventFromTask maps a task to its calendar event: summary is the task text,
// the description carries a Priority line when one is set, and the event
// spans one hour starting at the scheduled time (local noon for all-day
// tasks).
func EventFromTask(t task.Task) *calendar.Event {
	start := eventStart(t)
	end := start.Add(eventDuration)

	description := t.Text
	if t.Priority != "" {
		description = fmt.Sprintf("%s\nPriority: %s", t.Text, t.Priority)
	}

	return &calendar.Event{
		Summary:     t.Text,
		Description: description,
		ColorId:     colorForPriority(t.Priority),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				taskIDProperty: t.ID,
			},
		},
	}
}

func eventStart(t task.Task) time.Time {
	y, m, d := t.Date.Date()
	hour, minute := 12, 0 // all-day tasks land at local noon
	if t.ScheduledTime != "" {
		if h, err := strconv.Atoi(t.ScheduledTime[:2]); err == nil {
			hour = h
		}
		if min, err := strconv.Atoi(t.ScheduledTime[3:]); err == nil {
			minute = min
		}
	}
	return time.Date(y, m, d, hour, minute, 0, 0, time.Local)
}

func colorForPriority(p task.Priority) string {
	if id, ok := priorityColors[p]; ok {
		return id
	}
	return "1" // lavender for unprioritized
}

// eventNeedsUpdate compares an existing event with the freshly converted one
// and returns a patch with only the fields that differ, or nil when the
// event is already current.
func eventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	existingStart, err := time.Parse(time.RFC3339, existing.Start.DateTime)
	if err != nil {
		return nil, err
	}
	targetStart, err := time.Parse(time.RFC3339, target.Start.DateTime)
	if err != nil {
		return nil, err
	}
	existingEnd, err := time.Parse(time.RFC3339, existing.End.DateTime)
	if err != nil {
		return nil, err
	}
	targetEnd, err := time.Parse(time.RFC3339, target.End.DateTime)
	if err != nil {
		return nil, err
	}

	if !existingStart.Equal(targetStart) || !existingEnd.Equal(targetEnd) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}
