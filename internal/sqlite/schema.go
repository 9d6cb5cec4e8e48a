// Schema DDL for the satchel database. Timestamps are RFC 3339 TEXT; tag
// and external-ref lists are JSON arrays in TEXT columns.
package sqlite

import (
	"database/sql"
	"fmt"
)

const (
	createProject = `CREATE TABLE IF NOT EXISTS project (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    tags TEXT NOT NULL DEFAULT '[]',
    external_refs TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createRepo = `CREATE TABLE IF NOT EXISTS repo (
    id TEXT PRIMARY KEY,
    remote TEXT NOT NULL,
    path TEXT,
    tags TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);`

	createTaskList = `CREATE TABLE IF NOT EXISTS task_list (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    notes TEXT,
    project_id TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    external_refs TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    archived_at TEXT,
    FOREIGN KEY (project_id) REFERENCES project(id)
);`

	createTask = `CREATE TABLE IF NOT EXISTS task (
    id TEXT PRIMARY KEY,
    list_id TEXT NOT NULL,
    parent_id TEXT,
    title TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'backlog',
    priority INTEGER,
    tags TEXT NOT NULL DEFAULT '[]',
    external_refs TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    started_at TEXT,
    completed_at TEXT,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (list_id) REFERENCES task_list(id),
    FOREIGN KEY (parent_id) REFERENCES task(id)
);`

	createNote = `CREATE TABLE IF NOT EXISTS note (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    parent_id TEXT,
    idx INTEGER,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (parent_id) REFERENCES note(id)
);`

	createSkill = `CREATE TABLE IF NOT EXISTS skill (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createSkillAttachment = `CREATE TABLE IF NOT EXISTS skill_attachment (
    id TEXT PRIMARY KEY,
    skill_id TEXT NOT NULL,
    type TEXT NOT NULL,
    filename TEXT NOT NULL,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    mime_type TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (skill_id, filename),
    FOREIGN KEY (skill_id) REFERENCES skill(id) ON DELETE CASCADE
);`

	createProjectRepo = `CREATE TABLE IF NOT EXISTS project_repo (
    project_id TEXT NOT NULL,
    repo_id TEXT NOT NULL,
    PRIMARY KEY (project_id, repo_id),
    FOREIGN KEY (project_id) REFERENCES project(id),
    FOREIGN KEY (repo_id) REFERENCES repo(id)
);`

	createTaskListRepo = `CREATE TABLE IF NOT EXISTS task_list_repo (
    task_list_id TEXT NOT NULL,
    repo_id TEXT NOT NULL,
    PRIMARY KEY (task_list_id, repo_id),
    FOREIGN KEY (task_list_id) REFERENCES task_list(id),
    FOREIGN KEY (repo_id) REFERENCES repo(id)
);`

	createProjectNote = `CREATE TABLE IF NOT EXISTS project_note (
    project_id TEXT NOT NULL,
    note_id TEXT NOT NULL,
    PRIMARY KEY (project_id, note_id),
    FOREIGN KEY (project_id) REFERENCES project(id),
    FOREIGN KEY (note_id) REFERENCES note(id)
);`

	createNoteRepo = `CREATE TABLE IF NOT EXISTS note_repo (
    note_id TEXT NOT NULL,
    repo_id TEXT NOT NULL,
    PRIMARY KEY (note_id, repo_id),
    FOREIGN KEY (note_id) REFERENCES note(id),
    FOREIGN KEY (repo_id) REFERENCES repo(id)
);`

	createProjectSkill = `CREATE TABLE IF NOT EXISTS project_skill (
    project_id TEXT NOT NULL,
    skill_id TEXT NOT NULL,
    PRIMARY KEY (project_id, skill_id),
    FOREIGN KEY (project_id) REFERENCES project(id),
    FOREIGN KEY (skill_id) REFERENCES skill(id)
);`
)

// Index DDL for common queries.
const (
	idxTaskListProject = `CREATE INDEX IF NOT EXISTS idx_task_list_project ON task_list(project_id);`
	idxTaskList        = `CREATE INDEX IF NOT EXISTS idx_task_list ON task(list_id);`
	idxTaskParent      = `CREATE INDEX IF NOT EXISTS idx_task_parent ON task(parent_id);`
	idxTaskStatus      = `CREATE INDEX IF NOT EXISTS idx_task_status ON task(status);`
	idxNoteParent      = `CREATE INDEX IF NOT EXISTS idx_note_parent ON note(parent_id);`
	idxAttachmentSkill = `CREATE INDEX IF NOT EXISTS idx_attachment_skill ON skill_attachment(skill_id);`
	idxTaskListStatus  = `CREATE INDEX IF NOT EXISTS idx_task_list_status ON task_list(status);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createProject,
	createRepo,
	createTaskList,
	createTask,
	createNote,
	createSkill,
	createSkillAttachment,
	createProjectRepo,
	createTaskListRepo,
	createProjectNote,
	createNoteRepo,
	createProjectSkill,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxTaskListProject,
	idxTaskList,
	idxTaskParent,
	idxTaskStatus,
	idxNoteParent,
	idxAttachmentSkill,
	idxTaskListStatus,
}

// applySchema creates all tables and indexes.
func applySchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
