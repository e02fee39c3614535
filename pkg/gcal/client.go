// Package gcal is the Google Calendar collaborator: a thin client with the
// four operations the reconciler needs. All failures are returned to the
// caller; nothing here blocks a local task mutation.
package gcal

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/koushikyemula/cue/pkg/auth"
	"github.com/koushikyemula/cue/pkg/task"
)

// Client talks to one named calendar.
type Client struct {
	srv        *calendar.Service
	calendarID string
	logger     *zap.SugaredLogger
}

// NewClient builds a client for the named calendar, or nil (no error) when
// the user has never authenticated: sync is simply off in that case.
func NewClient(ctx context.Context, calendarName string, logger *zap.SugaredLogger) (*Client, error) {
	if !auth.HasToken() {
		return nil, nil
	}

	srv, err := auth.GetCalendarService(ctx, logger)
	if err != nil {
		return nil, err
	}

	calendarList, err := srv.CalendarList.List().Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	var calendarID string
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			calendarID = item.Id
			break
		}
	}
	if calendarID == "" {
		return nil, fmt.Errorf("calendar %q not found", calendarName)
	}

	return &Client{srv: srv, calendarID: calendarID, logger: logger}, nil
}

// IsConnected reports whether calendar calls can be attempted.
func (c *Client) IsConnected() bool {
	return c != nil && c.srv != nil
}

// CreateEvent inserts the event for a task and returns the new event id.
func (c *Client) CreateEvent(ctx context.Context, t task.Task) (string, error) {
	event := EventFromTask(t)
	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to insert event: %w", err)
	}
	c.logger.Debugw("created calendar event", "taskId", t.ID, "eventId", created.Id)
	return created.Id, nil
}

// UpdateEvent patches the task's event with whatever fields changed. A stale
// event id falls back to a lookup by the task-id extended property.
func (c *Client) UpdateEvent(ctx context.Context, t task.Task, eventID string) error {
	existing, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		existing, err = c.getEventByTaskID(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("unable to find event for task %s: %w", t.ID, err)
		}
		if existing == nil {
			return fmt.Errorf("no event found for task %s", t.ID)
		}
	}

	patch, err := eventNeedsUpdate(existing, EventFromTask(t))
	if err != nil {
		return fmt.Errorf("could not compare task with its calendar event: %w", err)
	}
	if patch == nil {
		return nil
	}

	if _, err := c.srv.Events.Patch(c.calendarID, existing.Id, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to patch event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to delete event: %w", err)
	}
	return nil
}

// getEventByTaskID searches by the private extended property.
func (c *Client) getEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", taskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}
