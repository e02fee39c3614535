package task

import "sort"

// Sort keys the host understands. These mirror the values the interpreter is
// instructed to emit for a sort action.
const (
	SortByPriority     = "priority"
	SortByTime         = "time"
	SortByAlphabetical = "alphabetical"
	SortByCreated      = "created"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
	"":             3,
}

// Sort orders the collection in place by the given key. Unknown keys leave
// the order untouched. The sort is stable so ties keep their insertion order.
func Sort(tasks []Task, by string) {
	switch by {
	case SortByPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return priorityRank[tasks[i].Priority] < priorityRank[tasks[j].Priority]
		})
	case SortByTime:
		sort.SliceStable(tasks, func(i, j int) bool {
			// All-day tasks sink below timed ones.
			ti, tj := tasks[i].ScheduledTime, tasks[j].ScheduledTime
			if (ti == "") != (tj == "") {
				return ti != ""
			}
			return ti < tj
		})
	case SortByAlphabetical:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Text < tasks[j].Text
		})
	case SortByCreated:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})
	}
}
