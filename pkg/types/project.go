package types

// Project is the root aggregation entity: it groups repositories, task
// lists, notes, and skills.
//
// Timestamps are RFC 3339 strings throughout. The live API generates them;
// sync import writes whatever the payload carries, verbatim.
type Project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Tags         []string `json:"tags"`
	ExternalRefs []string `json:"external_refs"`

	// Relationship ID lists, hydrated at read time. All four are derived
	// from join tables (or, for task lists, the owning project_id column)
	// and are never reconciled from the project record during import.
	RepoIDs     []string `json:"repo_ids"`
	TaskListIDs []string `json:"task_list_ids"`
	NoteIDs     []string `json:"note_ids"`
	SkillIDs    []string `json:"skill_ids"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
