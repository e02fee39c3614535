package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/koushikyemula/cue/pkg/action"
	"github.com/koushikyemula/cue/pkg/config"
	"github.com/koushikyemula/cue/pkg/task"
)

type fakeCalendar struct {
	mu        sync.Mutex
	connected bool
	createErr error
	updateErr error
	deleteErr error
	nextID    int
	created   []string // task text per create
	updated   []string // event ids
	deleted   []string // event ids
}

func (f *fakeCalendar) IsConnected() bool { return f.connected }

func (f *fakeCalendar) CreateEvent(ctx context.Context, t task.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	f.created = append(f.created, t.Text)
	return fmt.Sprintf("evt-%d", f.nextID), nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, t task.Task, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, eventID)
	return nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

var anchor = time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local)

func settings() *config.Settings {
	return &config.Settings{AIEnabled: true, DefaultPriority: task.PriorityMedium}
}

func syncSettings() *config.Settings {
	s := settings()
	s.SyncEnabled = true
	return s
}

func testReconciler(cal Calendar) *Reconciler {
	return New(cal, zap.NewNop().Sugar())
}

func apply(t *testing.T, r *Reconciler, actions []action.Action, rawText string, tasks []task.Task, s *config.Settings) *Result {
	t.Helper()
	result, err := r.Apply(context.Background(), actions, rawText, anchor, tasks, s)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return result
}

func TestAddDefaults(t *testing.T) {
	r := testReconciler(nil)
	result := apply(t, r, []action.Action{{Action: action.Add}}, "buy milk", nil, settings())

	if len(result.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(result.Tasks))
	}
	got := result.Tasks[0]
	if got.Text != "buy milk" {
		t.Errorf("Expected text to default to raw input, got %q", got.Text)
	}
	if !task.SameDay(got.Date, anchor) {
		t.Errorf("Expected date to default to the anchor day, got %v", got.Date)
	}
	if got.Priority != task.PriorityMedium {
		t.Errorf("Expected configured default priority, got %q", got.Priority)
	}
	if got.Completed {
		t.Error("Expected new task to be incomplete")
	}
	if len(result.Notices) != 1 || result.Notices[0] != "Added: buy milk" {
		t.Errorf("Expected one add notice, got %v", result.Notices)
	}
}

func TestAddWithFields(t *testing.T) {
	r := testReconciler(nil)
	a := action.Action{
		Action:        action.Add,
		Text:          action.StrPtr("team meeting"),
		TargetDate:    action.StrPtr("2024-06-02"),
		ScheduledTime: action.StrPtr("15:00"),
		Priority:      action.StrPtr("high"),
	}
	result := apply(t, r, []action.Action{a}, "add team meeting tomorrow at 3pm", nil, settings())

	got := result.Tasks[0]
	if got.Text != "team meeting" {
		t.Errorf("Expected action text to win over raw input, got %q", got.Text)
	}
	if task.DayKey(got.Date) != "2024-06-02" {
		t.Errorf("Expected date 2024-06-02, got %s", task.DayKey(got.Date))
	}
	if got.ScheduledTime != "15:00" {
		t.Errorf("Expected scheduled_time 15:00, got %q", got.ScheduledTime)
	}
	if got.Priority != task.PriorityHigh {
		t.Errorf("Expected high priority, got %q", got.Priority)
	}
}

func TestAddAttachesEventOnSync(t *testing.T) {
	cal := &fakeCalendar{connected: true}
	r := testReconciler(cal)
	result := apply(t, r, []action.Action{{Action: action.Add}}, "buy milk", nil, syncSettings())

	got := result.Tasks[0]
	if got.GCalEventID == "" || !got.SyncedWithGCal {
		t.Errorf("Expected calendar linkage on the new task, got %+v", got)
	}
	if len(cal.created) != 1 {
		t.Errorf("Expected one create call, got %d", len(cal.created))
	}
}

func TestAddSurvivesCreateFailure(t *testing.T) {
	cal := &fakeCalendar{connected: true, createErr: fmt.Errorf("api rejected")}
	r := testReconciler(cal)
	result := apply(t, r, []action.Action{{Action: action.Add}}, "buy milk", nil, syncSettings())

	if len(result.Tasks) != 1 {
		t.Fatalf("Expected the task to be appended despite sync failure, got %d tasks", len(result.Tasks))
	}
	got := result.Tasks[0]
	if got.GCalEventID != "" || got.SyncedWithGCal {
		t.Error("Expected no calendar linkage after a failed create")
	}
	foundFailure := false
	for _, n := range result.Notices {
		if strings.Contains(n, "Calendar sync failed") {
			foundFailure = true
		}
	}
	if !foundFailure {
		t.Errorf("Expected a non-blocking sync failure notice, got %v", result.Notices)
	}
}

func TestMarkOnlyBatchPreservesCollection(t *testing.T) {
	tasks := []task.Task{
		task.New("a", anchor, ""),
		task.New("b", anchor, ""),
		task.New("c", anchor, ""),
	}
	r := testReconciler(nil)
	batch := []action.Action{
		{Action: action.Mark, TaskID: action.StrPtr(tasks[0].ID), Status: action.StrPtr(action.StatusComplete)},
		{Action: action.Mark, TaskID: action.StrPtr(tasks[2].ID)},
	}
	result := apply(t, r, batch, "x", tasks, settings())

	if len(result.Tasks) != len(tasks) {
		t.Fatalf("Expected collection size preserved, got %d", len(result.Tasks))
	}
	if !result.Tasks[0].Completed {
		t.Error("Expected explicit complete to set completed")
	}
	if result.Tasks[1].Completed {
		t.Error("Expected untargeted task untouched")
	}
	if !result.Tasks[2].Completed {
		t.Error("Expected absent status to toggle")
	}
	if result.Tasks[1].Text != "b" || result.Tasks[1].Priority != tasks[1].Priority {
		t.Error("Expected non-completed fields untouched")
	}
}

func TestMarkIncomplete(t *testing.T) {
	done := task.New("dentist", anchor, "")
	done.Completed = true
	r := testReconciler(nil)
	batch := []action.Action{{Action: action.Mark, TaskID: action.StrPtr(done.ID), Status: action.StrPtr(action.StatusIncomplete)}}
	result := apply(t, r, batch, "x", []task.Task{done}, settings())

	if result.Tasks[0].Completed {
		t.Error("Expected incomplete status to clear completed")
	}
}

func TestEditOverlaysOnlyPresentFields(t *testing.T) {
	existing := task.New("dentist", anchor, task.PriorityLow)
	existing.ScheduledTime = "09:00"
	existing.Comment = "bring insurance card"

	r := testReconciler(nil)
	batch := []action.Action{{
		Action:   action.Edit,
		TaskID:   action.StrPtr(existing.ID),
		Text:     action.StrPtr("dentist appointment"),
		Priority: action.StrPtr("high"),
	}}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	got := result.Tasks[0]
	if got.Text != "dentist appointment" {
		t.Errorf("Expected text overlay, got %q", got.Text)
	}
	if got.Priority != task.PriorityHigh {
		t.Errorf("Expected priority overlay, got %q", got.Priority)
	}
	if got.ScheduledTime != "09:00" {
		t.Errorf("Expected absent scheduled_time to stay, got %q", got.ScheduledTime)
	}
	if got.Comment != "bring insurance card" {
		t.Error("Expected unrelated fields untouched")
	}
	if !got.CreatedAt.Equal(existing.CreatedAt) {
		t.Error("Expected created_at never to change")
	}
	if got.UpdatedAt.Before(existing.UpdatedAt) {
		t.Error("Expected updated_at refreshed")
	}
}

func TestEditClearsFieldPresentWithEmptyValue(t *testing.T) {
	existing := task.New("dentist", anchor, task.PriorityLow)
	existing.ScheduledTime = "09:00"

	r := testReconciler(nil)
	batch := []action.Action{{
		Action:        action.Edit,
		TaskID:        action.StrPtr(existing.ID),
		ScheduledTime: action.StrPtr(""),
		Priority:      action.StrPtr(""),
	}}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	got := result.Tasks[0]
	if got.ScheduledTime != "" {
		t.Errorf("Expected empty scheduled_time to clear the field, got %q", got.ScheduledTime)
	}
	if got.Priority != "" {
		t.Errorf("Expected empty priority to clear the field, got %q", got.Priority)
	}
}

func TestEditIdempotent(t *testing.T) {
	existing := task.New("dentist", anchor, "")
	edit := action.Action{
		Action:        action.Edit,
		TaskID:        action.StrPtr(existing.ID),
		Text:          action.StrPtr("dentist appointment"),
		TargetDate:    action.StrPtr("2024-06-03"),
		ScheduledTime: action.StrPtr("11:30"),
		Priority:      action.StrPtr("medium"),
	}

	r := testReconciler(nil)
	once := apply(t, r, []action.Action{edit}, "x", []task.Task{existing}, settings())
	twice := apply(t, r, []action.Action{edit}, "x", once.Tasks, settings())

	a, b := once.Tasks[0], twice.Tasks[0]
	if a.Text != b.Text || !a.Date.Equal(b.Date) || a.ScheduledTime != b.ScheduledTime || a.Priority != b.Priority || a.Completed != b.Completed {
		t.Errorf("Expected reapplying the same edit to be idempotent: %+v vs %+v", a, b)
	}
}

func TestEditWithoutTaskIDIsNoOp(t *testing.T) {
	existing := task.New("dentist", anchor, "")
	r := testReconciler(nil)
	batch := []action.Action{{Action: action.Edit, Text: action.StrPtr("changed")}}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	if result.Tasks[0].Text != "dentist" {
		t.Error("Expected edit without taskId to change nothing")
	}
}

func TestDeleteRemovesTaskAndEvent(t *testing.T) {
	synced := task.New("dentist", anchor, "")
	synced.GCalEventID = "evt-9"
	synced.SyncedWithGCal = true
	other := task.New("groceries", anchor, "")

	cal := &fakeCalendar{connected: true}
	r := testReconciler(cal)
	batch := []action.Action{{Action: action.Delete, TaskID: action.StrPtr(synced.ID)}}
	result := apply(t, r, batch, "x", []task.Task{synced, other}, syncSettings())

	if len(result.Tasks) != 1 || result.Tasks[0].ID != other.ID {
		t.Fatalf("Expected only the other task to remain, got %+v", result.Tasks)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "evt-9" {
		t.Errorf("Expected the linked event to be deleted, got %v", cal.deleted)
	}
}

func TestDeleteProceedsWhenEventDeleteFails(t *testing.T) {
	synced := task.New("dentist", anchor, "")
	synced.GCalEventID = "evt-9"

	cal := &fakeCalendar{connected: true, deleteErr: fmt.Errorf("network down")}
	r := testReconciler(cal)
	batch := []action.Action{{Action: action.Delete, TaskID: action.StrPtr(synced.ID)}}
	result := apply(t, r, batch, "x", []task.Task{synced}, syncSettings())

	if len(result.Tasks) != 0 {
		t.Error("Expected local delete despite calendar failure")
	}
}

func TestDeleteUnmatchedIsNoOp(t *testing.T) {
	existing := task.New("dentist", anchor, "")
	r := testReconciler(nil)
	batch := []action.Action{
		{Action: action.Delete},
		{Action: action.Delete, TaskID: action.StrPtr("no-such-id")},
	}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	if len(result.Tasks) != 1 {
		t.Error("Expected unmatched deletes to change nothing")
	}
}

func TestAddThenDeleteRoundTrips(t *testing.T) {
	existing := task.New("keep me", anchor, "")
	r := testReconciler(nil)

	added := apply(t, r, []action.Action{{Action: action.Add}}, "temp", []task.Task{existing}, settings())
	if len(added.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks after add, got %d", len(added.Tasks))
	}
	newID := added.Tasks[1].ID

	removed := apply(t, r, []action.Action{{Action: action.Delete, TaskID: action.StrPtr(newID)}}, "x", added.Tasks, settings())
	if len(removed.Tasks) != 1 || removed.Tasks[0].ID != existing.ID {
		t.Errorf("Expected collection back to the original task, got %+v", removed.Tasks)
	}
}

func TestClearAllRemovesOnlyAnchorDay(t *testing.T) {
	onDay := task.New("a", anchor, "")
	alsoOnDay := task.New("b", anchor.Add(14*time.Hour), "") // same calendar day, later instant
	otherDay := task.New("c", anchor.AddDate(0, 0, 1), "")

	r := testReconciler(nil)
	batch := []action.Action{{Action: action.Clear, ListToClear: action.StrPtr(action.ClearAll)}}
	result := apply(t, r, batch, "x", []task.Task{onDay, alsoOnDay, otherDay}, settings())

	if len(result.Tasks) != 1 || result.Tasks[0].ID != otherDay.ID {
		t.Errorf("Expected only the other-day task to survive, got %+v", result.Tasks)
	}
}

func TestClearCompletedKeepsIncomplete(t *testing.T) {
	doneA := task.New("a", anchor, "")
	doneA.Completed = true
	doneA.GCalEventID = "evt-1"
	doneB := task.New("b", anchor, "")
	doneB.Completed = true
	open := task.New("c", anchor, "")

	cal := &fakeCalendar{connected: true}
	r := testReconciler(cal)
	batch := []action.Action{{Action: action.Clear, ListToClear: action.StrPtr(action.ClearCompleted)}}
	result := apply(t, r, batch, "x", []task.Task{doneA, doneB, open}, syncSettings())

	if len(result.Tasks) != 1 || result.Tasks[0].ID != open.ID {
		t.Errorf("Expected only the incomplete task to remain, got %+v", result.Tasks)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "evt-1" {
		t.Errorf("Expected only linked events deleted, got %v", cal.deleted)
	}
}

func TestClearIncomplete(t *testing.T) {
	done := task.New("a", anchor, "")
	done.Completed = true
	open := task.New("b", anchor, "")

	r := testReconciler(nil)
	batch := []action.Action{{Action: action.Clear, ListToClear: action.StrPtr(action.ClearIncomplete)}}
	result := apply(t, r, batch, "x", []task.Task{done, open}, settings())

	if len(result.Tasks) != 1 || result.Tasks[0].ID != done.ID {
		t.Errorf("Expected only the completed task to remain, got %+v", result.Tasks)
	}
}

func TestSortAndExportAreSignalsOnly(t *testing.T) {
	tasks := []task.Task{task.New("b", anchor, ""), task.New("a", anchor, "")}
	r := testReconciler(nil)
	batch := []action.Action{
		{Action: action.Sort, SortBy: action.StrPtr("priority")},
		{Action: action.Export},
	}
	result := apply(t, r, batch, "x", tasks, settings())

	if result.SortBy != "priority" {
		t.Errorf("Expected sort signal, got %q", result.SortBy)
	}
	if !result.Export {
		t.Error("Expected export signal")
	}
	if result.Tasks[0].ID != tasks[0].ID || result.Tasks[1].ID != tasks[1].ID {
		t.Error("Expected the collection order untouched by sort/export")
	}
}

func TestUnknownKindIsSkipped(t *testing.T) {
	existing := task.New("a", anchor, "")
	r := testReconciler(nil)
	batch := []action.Action{
		{Action: action.Kind("archive")},
		{Action: action.Add, Text: action.StrPtr("b")},
	}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	if len(result.Tasks) != 2 {
		t.Errorf("Expected unknown kind skipped and later actions processed, got %d tasks", len(result.Tasks))
	}
}

func TestSameTaskActionsCompose(t *testing.T) {
	existing := task.New("dentist", anchor, "")
	r := testReconciler(nil)
	batch := []action.Action{
		{Action: action.Edit, TaskID: action.StrPtr(existing.ID), Text: action.StrPtr("dentist appointment")},
		{Action: action.Mark, TaskID: action.StrPtr(existing.ID), Status: action.StrPtr(action.StatusComplete)},
	}
	result := apply(t, r, batch, "x", []task.Task{existing}, settings())

	got := result.Tasks[0]
	if got.Text != "dentist appointment" || !got.Completed {
		t.Errorf("Expected both actions applied in order, got %+v", got)
	}
}

func TestSyncDisabledSkipsCalendar(t *testing.T) {
	cal := &fakeCalendar{connected: true}
	r := testReconciler(cal)
	apply(t, r, []action.Action{{Action: action.Add}}, "buy milk", nil, settings())

	if len(cal.created) != 0 {
		t.Error("Expected no calendar calls with sync disabled")
	}
}

func TestDisconnectedCalendarSkipsSideEffects(t *testing.T) {
	cal := &fakeCalendar{connected: false}
	r := testReconciler(cal)
	result := apply(t, r, []action.Action{{Action: action.Add}}, "buy milk", nil, syncSettings())

	if len(cal.created) != 0 {
		t.Error("Expected no calendar calls while disconnected")
	}
	if result.Tasks[0].SyncedWithGCal {
		t.Error("Expected no linkage while disconnected")
	}
}
