// Package reconcile applies an ordered action batch to the task collection.
// Local mutations are applied strictly in batch order against one working
// copy, so later actions targeting the same task land on top of earlier
// ones. Calendar side effects never gate local mutations: event creation is
// awaited inline because its result (the event id) is attached to the new
// task, while update and delete calls run concurrently and are settled
// before Apply returns. Each calendar failure is isolated to its own action.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/koushikyemula/cue/pkg/action"
	"github.com/koushikyemula/cue/pkg/config"
	"github.com/koushikyemula/cue/pkg/task"
)

// Calendar is the external calendar collaborator. A nil Calendar or a
// disconnected one disables all side effects; tasks are still mutated
// locally (fail-open).
type Calendar interface {
	IsConnected() bool
	CreateEvent(ctx context.Context, t task.Task) (string, error)
	UpdateEvent(ctx context.Context, t task.Task, eventID string) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Result is the outcome of one Apply call. SortBy and Export are signals for
// the host; the reconciler does not reorder or export the collection itself.
type Result struct {
	Tasks   []task.Task
	Notices []string
	SortBy  string
	Export  bool
}

// Reconciler applies action batches. Callers must serialize Apply calls for
// one collection; there is no version check on tasks.
type Reconciler struct {
	calendar Calendar
	logger   *zap.SugaredLogger
}

func New(calendar Calendar, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{calendar: calendar, logger: logger}
}

// Apply processes the batch against currentTasks and returns the new
// collection. rawText is the user's original input, used when an add action
// carries no text of its own; anchor is the calendar day selected in the
// host. An error return indicates a programming defect, not an expected
// runtime condition.
func (r *Reconciler) Apply(ctx context.Context, actions []action.Action, rawText string, anchor time.Time, currentTasks []task.Task, settings *config.Settings) (*Result, error) {
	tasks := make([]task.Task, len(currentTasks))
	copy(tasks, currentTasks)

	result := &Result{}
	syncActive := settings.SyncEnabled && r.calendar != nil && r.calendar.IsConnected()

	var wg sync.WaitGroup
	var mu sync.Mutex // guards result.Notices from side-effect goroutines
	notice := func(msg string) {
		mu.Lock()
		result.Notices = append(result.Notices, msg)
		mu.Unlock()
	}

	for _, a := range actions {
		switch a.Action {
		case action.Add:
			t := r.buildTask(ctx, a, rawText, anchor, settings, syncActive, notice)
			tasks = append(tasks, t)
			notice("Added: " + t.Text)

		case action.Delete:
			i := findTask(tasks, a.TaskID)
			if i < 0 {
				continue
			}
			if eventID := tasks[i].GCalEventID; eventID != "" && syncActive {
				r.deleteEventAsync(ctx, &wg, eventID, tasks[i].Text, notice)
			}
			tasks = append(tasks[:i], tasks[i+1:]...)

		case action.Edit:
			i := findTask(tasks, a.TaskID)
			if i < 0 {
				continue
			}
			tasks[i] = overlay(tasks[i], a)
			if eventID := tasks[i].GCalEventID; eventID != "" && syncActive {
				t := tasks[i]
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := r.calendar.UpdateEvent(ctx, t, eventID); err != nil {
						r.logger.Warnw("calendar update failed", "taskId", t.ID, "error", err)
						notice(fmt.Sprintf("Calendar sync failed for %q", t.Text))
					}
				}()
			}

		case action.Mark:
			i := findTask(tasks, a.TaskID)
			if i < 0 {
				continue
			}
			switch {
			case a.Status == nil:
				tasks[i].Completed = !tasks[i].Completed
			case *a.Status == action.StatusComplete:
				tasks[i].Completed = true
			case *a.Status == action.StatusIncomplete:
				tasks[i].Completed = false
			default:
				tasks[i].Completed = !tasks[i].Completed
			}
			tasks[i].UpdatedAt = time.Now()

		case action.Clear:
			if a.ListToClear == nil {
				continue
			}
			tasks = r.clear(ctx, &wg, tasks, *a.ListToClear, anchor, syncActive, notice)

		case action.Sort:
			if a.SortBy != nil {
				result.SortBy = *a.SortBy
			}

		case action.Export:
			result.Export = true

		default:
			// Unknown kinds from the model are skipped, not failed.
			r.logger.Debugw("ignoring unknown action kind", "kind", a.Action)
		}
	}

	wg.Wait()
	result.Tasks = tasks
	return result, nil
}

// buildTask constructs the task for an add action, applying defaults and, if
// sync is active, attempting the calendar create before the task is
// appended. A failed create leaves the task unlinked but still added.
func (r *Reconciler) buildTask(ctx context.Context, a action.Action, rawText string, anchor time.Time, settings *config.Settings, syncActive bool, notice func(string)) task.Task {
	text := rawText
	if a.Text != nil && *a.Text != "" {
		text = *a.Text
	}

	date := anchor
	if a.TargetDate != nil {
		if d, err := time.ParseInLocation("2006-01-02", *a.TargetDate, time.Local); err == nil {
			date = d
		} else {
			r.logger.Warnw("ignoring malformed targetDate", "value", *a.TargetDate)
		}
	}

	priority := settings.DefaultPriority
	if a.Priority != nil {
		if p := task.Priority(*a.Priority); p.Valid() {
			priority = p
		}
	}

	t := task.New(text, date, priority)
	if a.ScheduledTime != nil && task.ValidScheduledTime(*a.ScheduledTime) {
		t.ScheduledTime = *a.ScheduledTime
	}

	if syncActive {
		eventID, err := r.calendar.CreateEvent(ctx, t)
		if err != nil {
			r.logger.Warnw("calendar create failed", "taskId", t.ID, "error", err)
			notice(fmt.Sprintf("Calendar sync failed for %q", t.Text))
		} else if eventID != "" {
			t.GCalEventID = eventID
			t.SyncedWithGCal = true
		}
	}
	return t
}

// clear removes tasks on the anchor day matching the requested list. An
// unrecognized list value removes nothing.
func (r *Reconciler) clear(ctx context.Context, wg *sync.WaitGroup, tasks []task.Task, list string, anchor time.Time, syncActive bool, notice func(string)) []task.Task {
	if list != action.ClearAll && list != action.ClearCompleted && list != action.ClearIncomplete {
		return tasks
	}

	kept := tasks[:0:0]
	for _, t := range tasks {
		remove := task.SameDay(t.Date, anchor) &&
			(list == action.ClearAll ||
				(list == action.ClearCompleted && t.Completed) ||
				(list == action.ClearIncomplete && !t.Completed))
		if !remove {
			kept = append(kept, t)
			continue
		}
		if t.GCalEventID != "" && syncActive {
			r.deleteEventAsync(ctx, wg, t.GCalEventID, t.Text, notice)
		}
	}
	return kept
}

func (r *Reconciler) deleteEventAsync(ctx context.Context, wg *sync.WaitGroup, eventID, text string, notice func(string)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.calendar.DeleteEvent(ctx, eventID); err != nil {
			r.logger.Warnw("calendar delete failed", "eventId", eventID, "error", err)
			notice(fmt.Sprintf("Calendar sync failed for %q", text))
		}
	}()
}

// overlay rebuilds a task from an edit action. Only fields present in the
// action change; a field present with an empty value clears it. Malformed
// dates and times are ignored rather than failed.
func overlay(t task.Task, a action.Action) task.Task {
	if a.Text != nil && *a.Text != "" {
		t.Text = *a.Text
	}
	if a.TargetDate != nil {
		if d, err := time.ParseInLocation("2006-01-02", *a.TargetDate, time.Local); err == nil {
			t.Date = d
		}
	}
	if a.ScheduledTime != nil && task.ValidScheduledTime(*a.ScheduledTime) {
		t.ScheduledTime = *a.ScheduledTime
	}
	if a.Priority != nil {
		if p := task.Priority(*a.Priority); p.Valid() {
			t.Priority = p
		}
	}
	t.UpdatedAt = time.Now()
	return t
}

func findTask(tasks []task.Task, id *string) int {
	if id == nil || *id == "" {
		return -1
	}
	for i := range tasks {
		if tasks[i].ID == *id {
			return i
		}
	}
	return -1
}
