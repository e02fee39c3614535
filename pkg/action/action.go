// Package action defines the structured instructions the interpreter
// produces from natural-language input. The set of kinds is closed; the
// reconciler dispatches exhaustively over it.
package action

// Kind enumerates the seven supported action kinds.
type Kind string

const (
	Add    Kind = "add"
	Delete Kind = "delete"
	Mark   Kind = "mark"
	Sort   Kind = "sort"
	Edit   Kind = "edit"
	Clear  Kind = "clear"
	Export Kind = "export"
)

// Known reports whether k is one of the seven supported kinds. Anything else
// is skipped by the reconciler rather than treated as an error, so a model
// that hallucinates a future kind degrades to a no-op.
func (k Kind) Known() bool {
	switch k {
	case Add, Delete, Mark, Sort, Edit, Clear, Export:
		return true
	}
	return false
}

// Status values for a mark action.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
)

// Lists a clear action can target.
const (
	ClearAll        = "all"
	ClearCompleted  = "completed"
	ClearIncomplete = "incomplete"
)

// Action is one instruction from an interpretation batch. Every field except
// the kind is optional; pointers distinguish "field present" (overlay, even
// with an empty value) from "field absent" (no change). The schema does not
// enforce per-kind required fields — a semantically incomplete action, such
// as an edit without a taskId, is a no-op at reconcile time.
type Action struct {
	Action Kind `json:"action"`

	Text          *string `json:"text,omitempty"`
	TaskID        *string `json:"taskId,omitempty"`
	TargetDate    *string `json:"targetDate,omitempty"`    // yyyy-MM-dd
	ScheduledTime *string `json:"scheduled_time,omitempty"` // 24h HH:mm
	Priority      *string `json:"priority,omitempty"`       // high | medium | low
	SortBy        *string `json:"sortBy,omitempty"`
	Status        *string `json:"status,omitempty"`      // complete | incomplete
	ListToClear   *string `json:"listToClear,omitempty"` // all | completed | incomplete
}

// Batch is an ordered sequence of actions from one interpretation call.
// Order matters when two actions reference the same task: the later one's
// effect lands on top.
type Batch struct {
	Actions []Action `json:"actions"`
}

// StrPtr is a convenience for building actions in code and tests.
func StrPtr(s string) *string { return &s }
