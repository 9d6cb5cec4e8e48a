package types

// Note is a freeform markdown note. Notes form a tree via ParentID with an
// optional manual ordering index among siblings.
type Note struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	ParentID *string  `json:"parent_id"`
	Idx      *int     `json:"idx"`

	// Linked repository and project IDs (M:N via note_repo and
	// project_note). Owned by the note record during import.
	RepoIDs    []string `json:"repo_ids"`
	ProjectIDs []string `json:"project_ids"`

	// SubnoteCount is computed at read time and never stored.
	SubnoteCount *int `json:"subnote_count,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
