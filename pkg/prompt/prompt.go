// Package prompt renders the current task state into the deterministic
// natural-language instruction prompt the interpreter sends to the model.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/koushikyemula/cue/pkg/task"
)

// emptyListLine is emitted when the user has no tasks yet.
const emptyListLine = "- (no tasks)"

// Build renders the instruction prompt for the given input text, task list
// and IANA timezone. It is deterministic given its inputs and the current
// instant; no I/O.
func Build(text string, tasks []task.Task, timezone string) (string, error) {
	return BuildAt(text, tasks, timezone, time.Now())
}

// BuildAt is Build with an explicit current instant.
func BuildAt(text string, tasks []task.Task, timezone string, now time.Time) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	// Resolve "today" as a calendar date in the user's zone, then derive
	// "tomorrow" with date-only arithmetic. Adding 24h instead would skew
	// across DST transitions.
	local := now.In(loc)
	y, m, d := local.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	tomorrow := time.Date(y, m, d+1, 0, 0, 0, 0, loc)

	return fmt.Sprintf(promptTemplate,
		today.Format("2006-01-02"),
		tomorrow.Format("2006-01-02"),
		TaskList(tasks),
		text,
	), nil
}

// TaskList serializes tasks one per line as `- {id}: {text}`, with
// ` (Time: HH:mm)` and ` (Priority: p)` suffixes appended in that order when
// present. The format is part of the model contract: taskId values in the
// model's output are matched back against these ids.
func TaskList(tasks []task.Task) string {
	if len(tasks) == 0 {
		return emptyListLine
	}
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fmt.Sprintf("- %s: %s", t.ID, t.Text))
		if t.ScheduledTime != "" {
			b.WriteString(fmt.Sprintf(" (Time: %s)", t.ScheduledTime))
		}
		if t.Priority != "" {
			b.WriteString(fmt.Sprintf(" (Priority: %s)", t.Priority))
		}
	}
	return b.String()
}

const promptTemplate = `You are a task assistant for a personal task manager. Convert the user's input into structured actions on their task list.

Today's date is %s. Tomorrow's date is %s.

## Actions

You can return one or more of these actions:

### add
Create a new task.
Fields:
- text: the task description, cleaned up (strip date/time/priority words that you extracted into fields)
- targetDate (optional): yyyy-MM-dd, when the task should happen
- scheduled_time (optional): 24-hour HH:mm, when a specific time is mentioned
- priority (optional): "high", "medium" or "low"

### delete
Remove an existing task.
Fields:
- taskId: the id of the task to remove, taken from the task list below

### mark
Mark a task complete or incomplete.
Fields:
- taskId: the id of the task
- status: "complete" or "incomplete"; omit it to toggle

### edit
Change fields of an existing task. Only include the fields that change.
Fields:
- taskId: the id of the task
- text, targetDate, scheduled_time, priority: the new values

### sort
Reorder the list.
Fields:
- sortBy: "priority", "time", "alphabetical" or "created"

### clear
Remove tasks on the currently selected day.
Fields:
- listToClear: "all", "completed" or "incomplete"

### export
Export the task list to a file. No fields.

## Rules

1. Dates: "today" means %[1]s, "tomorrow" means %[2]s. Resolve weekday names to the next occurrence on or after today. Always output dates as yyyy-MM-dd.
2. Times: always 24-hour HH:mm. "3pm" is "15:00", "noon" is "12:00". Only set scheduled_time when the user names a time.
3. Priority keywords: "urgent", "important", "critical", "top", "asap" mean high; "normal", "moderate" mean medium; "minor", "minimal", "lowest" mean low. Similar words belong to the closest bucket.
4. Statements in the past tense about an existing task ("i did X", "i went to X") mean mark that task complete.
5. When the input refers to an existing task, match it against the task list below and use that task's id. Never invent ids.
6. If the input is plain text with no recognizable command, create a single add action with the input as the text.
7. Multiple instructions in one input produce multiple actions, in the order given.

## Current tasks

%[3]s

## Examples

Input: "buy milk tomorrow at 3pm"
Output: {"actions":[{"action":"add","text":"buy milk","targetDate":"%[2]s","scheduled_time":"15:00"}]}

Input: "urgent: file taxes"
Output: {"actions":[{"action":"add","text":"file taxes","priority":"high"}]}

Input: "i went to the dentist" (with task "- t1: dentist" in the list)
Output: {"actions":[{"action":"mark","taskId":"t1","status":"complete"}]}

Input: "clear everything done today"
Output: {"actions":[{"action":"clear","listToClear":"completed"}]}

Input: "sort by priority and add call mom"
Output: {"actions":[{"action":"sort","sortBy":"priority"},{"action":"add","text":"call mom"}]}

## Output

Respond with a single JSON object: {"actions":[...]}. No text outside the JSON.

User input: %[4]s`
