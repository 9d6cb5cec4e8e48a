package types

// Repo is a git repository tracked by the system: a remote URL plus an
// optional local checkout path.
type Repo struct {
	ID     string   `json:"id"`
	Remote string   `json:"remote"`
	Path   *string  `json:"path"`
	Tags   []string `json:"tags"`

	// Linked project IDs (M:N via project_repo). The repo record owns this
	// relationship during import.
	ProjectIDs []string `json:"project_ids"`

	CreatedAt string `json:"created_at"`
}
