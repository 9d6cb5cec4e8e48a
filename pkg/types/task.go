package types

import "fmt"

// Task statuses. A task moves backlog -> todo -> in_progress -> review ->
// done, or is cancelled from any state.
const (
	TaskBacklog    = "backlog"
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
	TaskCancelled  = "cancelled"
)

// validTaskStatuses is the set of recognized task status values.
var validTaskStatuses = map[string]bool{
	TaskBacklog:    true,
	TaskTodo:       true,
	TaskInProgress: true,
	TaskReview:     true,
	TaskDone:       true,
	TaskCancelled:  true,
}

// ParseTaskStatus validates a task status string.
func ParseTaskStatus(s string) (string, error) {
	if !validTaskStatuses[s] {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return s, nil
}

// Task is an individual work item within a task list. Tasks form a tree via
// ParentID; subtasks reference their parent task, the depth is unconstrained,
// and cycles are not prevented at the storage layer.
type Task struct {
	ID           string   `json:"id"`
	ListID       string   `json:"list_id"`
	ParentID     *string  `json:"parent_id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Status       string   `json:"status"`
	Priority     *int     `json:"priority"`
	Tags         []string `json:"tags"`
	ExternalRefs []string `json:"external_refs"`

	CreatedAt   string  `json:"created_at"`
	StartedAt   *string `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	UpdatedAt   string  `json:"updated_at"`
}
