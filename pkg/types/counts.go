package types

// SyncCounts reports per-entity-type record counts from an export, an
// import, or a JSONL directory scan. It is the only structured output the
// sync engines return beyond success or failure.
type SyncCounts struct {
	Repos     int `json:"repos"`
	Projects  int `json:"projects"`
	TaskLists int `json:"task_lists"`
	Tasks     int `json:"tasks"`
	Notes     int `json:"notes"`
	Skills    int `json:"skills"`
}

// Total returns the grand total across all entity types.
func (c SyncCounts) Total() int {
	return c.Repos + c.Projects + c.TaskLists + c.Tasks + c.Notes + c.Skills
}
