package types

import "fmt"

// Task list lifecycle statuses.
const (
	TaskListActive   = "active"
	TaskListArchived = "archived"
)

// validTaskListStatuses is the set of recognized task list status values.
var validTaskListStatuses = map[string]bool{
	TaskListActive:   true,
	TaskListArchived: true,
}

// ParseTaskListStatus validates a task list status string.
func ParseTaskListStatus(s string) (string, error) {
	if !validTaskListStatuses[s] {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return s, nil
}

// TaskList is a collection of tasks. Every task list belongs to exactly one
// project; the project reference is required.
type TaskList struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Notes        *string  `json:"notes"`
	Tags         []string `json:"tags"`
	ExternalRefs []string `json:"external_refs"`
	Status       string   `json:"status"`

	// Linked repository IDs (M:N via task_list_repo). Owned by the task
	// list record during import.
	RepoIDs []string `json:"repo_ids"`

	// Owning project (1:N, required).
	ProjectID string `json:"project_id"`

	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
	ArchivedAt *string `json:"archived_at"`
}
