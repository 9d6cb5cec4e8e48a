// Export and import engines. Export serializes the database to six JSONL
// files; import replays them into one transaction with deferred foreign
// keys, so records may arrive in any order and reference entities that
// appear later in the snapshot.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/satchel/internal/jsonl"
	"github.com/mesh-intelligence/satchel/internal/skillcache"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Sync snapshot file names. All six are always written by export; import
// treats a missing file as zero records.
const (
	FileRepos    = "repos.jsonl"
	FileProjects = "projects.jsonl"
	FileLists    = "lists.jsonl"
	FileTasks    = "tasks.jsonl"
	FileNotes    = "notes.jsonl"
	FileSkills   = "skills.jsonl"
)

// ExportAll writes the full database state as JSONL files into dir. Every
// entity is exported hydrated, so the files carry relationship ID lists and
// skills embed their attachments. Files are written atomically one at a
// time; an I/O error aborts the export.
func (s *Store) ExportAll(dir string) (types.SyncCounts, error) {
	if s.db == nil {
		return types.SyncCounts{}, types.ErrStoreClosed
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.SyncCounts{}, fmt.Errorf("creating sync dir: %w", err)
	}

	var counts types.SyncCounts

	repos, err := s.ListRepos()
	if err != nil {
		return types.SyncCounts{}, err
	}
	for _, repo := range repos {
		if err := s.hydrateRepo(s.db, repo); err != nil {
			return types.SyncCounts{}, err
		}
	}
	if err := jsonl.Write(filepath.Join(dir, FileRepos), repos); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting repos: %w", err)
	}
	counts.Repos = len(repos)

	projects, err := s.ListProjects()
	if err != nil {
		return types.SyncCounts{}, err
	}
	for _, project := range projects {
		if err := s.hydrateProject(s.db, project); err != nil {
			return types.SyncCounts{}, err
		}
	}
	if err := jsonl.Write(filepath.Join(dir, FileProjects), projects); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting projects: %w", err)
	}
	counts.Projects = len(projects)

	lists, err := s.ListTaskLists()
	if err != nil {
		return types.SyncCounts{}, err
	}
	for _, list := range lists {
		if err := s.hydrateTaskList(s.db, list); err != nil {
			return types.SyncCounts{}, err
		}
	}
	if err := jsonl.Write(filepath.Join(dir, FileLists), lists); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting task lists: %w", err)
	}
	counts.TaskLists = len(lists)

	tasks, err := s.ListTasks()
	if err != nil {
		return types.SyncCounts{}, err
	}
	if err := jsonl.Write(filepath.Join(dir, FileTasks), tasks); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting tasks: %w", err)
	}
	counts.Tasks = len(tasks)

	notes, err := s.ListNotes()
	if err != nil {
		return types.SyncCounts{}, err
	}
	for _, note := range notes {
		if err := s.hydrateNote(s.db, note); err != nil {
			return types.SyncCounts{}, err
		}
	}
	if err := jsonl.Write(filepath.Join(dir, FileNotes), notes); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting notes: %w", err)
	}
	counts.Notes = len(notes)

	skills, err := s.ListSkills()
	if err != nil {
		return types.SyncCounts{}, err
	}
	for _, skill := range skills {
		if err := s.hydrateSkill(s.db, skill); err != nil {
			return types.SyncCounts{}, err
		}
	}
	if err := jsonl.Write(filepath.Join(dir, FileSkills), skills); err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting skills: %w", err)
	}
	counts.Skills = len(skills)

	return counts, nil
}

// snapshot holds a fully parsed sync directory.
type snapshot struct {
	Repos    []types.Repo
	Projects []types.Project
	Lists    []types.TaskList
	Tasks    []types.Task
	Notes    []types.Note
	Skills   []types.Skill
}

func (snap *snapshot) counts() types.SyncCounts {
	return types.SyncCounts{
		Repos:     len(snap.Repos),
		Projects:  len(snap.Projects),
		TaskLists: len(snap.Lists),
		Tasks:     len(snap.Tasks),
		Notes:     len(snap.Notes),
		Skills:    len(snap.Skills),
	}
}

// ImportAll replays a sync directory into the database in one transaction.
// Every file is parsed and validated before a single row is written; any
// malformed line or invalid record fails the whole import. Foreign key
// enforcement is deferred inside the transaction, so records reference each
// other freely regardless of file order; a final integrity check before
// commit rejects snapshots with dangling references. On any failure the
// database is untouched.
func (s *Store) ImportAll(dir string) (types.SyncCounts, error) {
	if s.db == nil {
		return types.SyncCounts{}, types.ErrStoreClosed
	}
	snap, err := readSnapshot(dir)
	if err != nil {
		return types.SyncCounts{}, err
	}
	if err := validateSnapshot(snap); err != nil {
		return types.SyncCounts{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return types.SyncCounts{}, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	// FK checks move to COMMIT for the lifetime of this transaction, which
	// is what lets a task row land before its list.
	if _, err := tx.Exec("PRAGMA defer_foreign_keys = ON"); err != nil {
		return types.SyncCounts{}, fmt.Errorf("deferring foreign keys: %w", err)
	}

	changedSkills, err := importSnapshot(tx, snap)
	if err != nil {
		return types.SyncCounts{}, err
	}

	// Validate referential integrity before COMMIT. A deferred FK failure
	// surfacing at Commit would leave the SQLite transaction open while
	// database/sql marks the Tx done, stranding the pooled connection
	// inside a transaction no caller can roll back. Checking here keeps
	// the Tx live so the deferred Rollback reverts everything.
	if err := checkForeignKeys(tx); err != nil {
		return types.SyncCounts{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.SyncCounts{}, fmt.Errorf("committing import: %w", err)
	}

	// Cache entries for skills whose attachments changed are stale now that
	// the import is durable. Extraction rebuilds them on demand, so a failed
	// removal is not worth failing the import over.
	for _, skillID := range changedSkills {
		_ = skillcache.Invalidate(s.dataDir, skillID)
	}

	return snap.counts(), nil
}

// readSnapshot parses every present sync file. Missing files yield zero
// records; a malformed line anywhere fails the whole read.
func readSnapshot(dir string) (*snapshot, error) {
	var snap snapshot
	var err error
	if snap.Repos, err = readSyncFile[types.Repo](dir, FileRepos); err != nil {
		return nil, err
	}
	if snap.Projects, err = readSyncFile[types.Project](dir, FileProjects); err != nil {
		return nil, err
	}
	if snap.Lists, err = readSyncFile[types.TaskList](dir, FileLists); err != nil {
		return nil, err
	}
	if snap.Tasks, err = readSyncFile[types.Task](dir, FileTasks); err != nil {
		return nil, err
	}
	if snap.Notes, err = readSyncFile[types.Note](dir, FileNotes); err != nil {
		return nil, err
	}
	if snap.Skills, err = readSyncFile[types.Skill](dir, FileSkills); err != nil {
		return nil, err
	}
	return &snap, nil
}

func readSyncFile[T any](dir, name string) ([]T, error) {
	records, err := jsonl.Read[T](filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return records, nil
}

// validateSnapshot checks required fields and enum values before the
// transaction opens.
func validateSnapshot(snap *snapshot) error {
	for _, repo := range snap.Repos {
		if repo.ID == "" {
			return fmt.Errorf("%s: repo without an id: %w", FileRepos, types.ErrInvalidID)
		}
		if repo.Remote == "" {
			return fmt.Errorf("%s: repo %s needs a remote: %w", FileRepos, repo.ID, types.ErrInvalidData)
		}
	}
	for _, project := range snap.Projects {
		if project.ID == "" {
			return fmt.Errorf("%s: project without an id: %w", FileProjects, types.ErrInvalidID)
		}
		if project.Title == "" {
			return fmt.Errorf("%s: project %s needs a title: %w", FileProjects, project.ID, types.ErrInvalidData)
		}
	}
	for _, list := range snap.Lists {
		if list.ID == "" {
			return fmt.Errorf("%s: task list without an id: %w", FileLists, types.ErrInvalidID)
		}
		if list.Title == "" || list.ProjectID == "" {
			return fmt.Errorf("%s: task list %s needs a title and project_id: %w", FileLists, list.ID, types.ErrInvalidData)
		}
		if _, err := types.ParseTaskListStatus(list.Status); err != nil {
			return fmt.Errorf("%s: task list %s: %w", FileLists, list.ID, err)
		}
	}
	for _, task := range snap.Tasks {
		if task.ID == "" {
			return fmt.Errorf("%s: task without an id: %w", FileTasks, types.ErrInvalidID)
		}
		if task.Title == "" || task.ListID == "" {
			return fmt.Errorf("%s: task %s needs a title and list_id: %w", FileTasks, task.ID, types.ErrInvalidData)
		}
		if _, err := types.ParseTaskStatus(task.Status); err != nil {
			return fmt.Errorf("%s: task %s: %w", FileTasks, task.ID, err)
		}
	}
	for _, note := range snap.Notes {
		if note.ID == "" {
			return fmt.Errorf("%s: note without an id: %w", FileNotes, types.ErrInvalidID)
		}
		if note.Title == "" {
			return fmt.Errorf("%s: note %s needs a title: %w", FileNotes, note.ID, types.ErrInvalidData)
		}
	}
	for _, skill := range snap.Skills {
		if skill.ID == "" {
			return fmt.Errorf("%s: skill without an id: %w", FileSkills, types.ErrInvalidID)
		}
		if skill.Name == "" {
			return fmt.Errorf("%s: skill %s needs a name: %w", FileSkills, skill.ID, types.ErrInvalidData)
		}
		for _, att := range skill.Attachments {
			if att.Filename == "" {
				return fmt.Errorf("%s: skill %s attachment needs a filename: %w", FileSkills, skill.ID, types.ErrInvalidData)
			}
			if _, err := types.ParseAttachmentType(att.Type); err != nil {
				return fmt.Errorf("%s: skill %s attachment %s: %w", FileSkills, skill.ID, att.Filename, err)
			}
		}
	}
	return nil
}

// importSnapshot upserts every record inside the open transaction and
// returns the IDs of skills whose attachments changed. Processing order is
// parent-first for readability; with deferred foreign keys it is not load
// bearing. Duplicate IDs within one file resolve last line wins, a side
// effect of upserting in file order.
func importSnapshot(q querier, snap *snapshot) ([]string, error) {
	for i := range snap.Projects {
		if err := upsertProject(q, &snap.Projects[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Repos {
		if err := upsertRepo(q, &snap.Repos[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Lists {
		if err := upsertTaskList(q, &snap.Lists[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Tasks {
		if err := upsertTask(q, &snap.Tasks[i]); err != nil {
			return nil, err
		}
	}
	for i := range snap.Notes {
		if err := upsertNote(q, &snap.Notes[i]); err != nil {
			return nil, err
		}
	}

	changedSkills := []string{}
	for i := range snap.Skills {
		changed, err := upsertSkill(q, &snap.Skills[i])
		if err != nil {
			return nil, err
		}
		if changed {
			changedSkills = append(changedSkills, snap.Skills[i].ID)
		}
	}
	return changedSkills, nil
}

// checkForeignKeys reports the first dangling reference left by the
// upserts. With foreign key enforcement deferred, this is where a bad
// snapshot is caught.
func checkForeignKeys(q querier) error {
	rows, err := q.Query("PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("checking foreign keys: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkIndex int
		if err := rows.Scan(&table, &rowid, &parent, &fkIndex); err != nil {
			return fmt.Errorf("checking foreign keys: %w", err)
		}
		return fmt.Errorf("import references a missing entity: %s row refers to absent %s: %w", table, parent, types.ErrConstraint)
	}
	return rows.Err()
}

func upsertProject(q querier, project *types.Project) error {
	tags, err := marshalStrings(project.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(project.ExternalRefs)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO project (id, title, description, tags, external_refs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, tags = excluded.tags,
		   external_refs = excluded.external_refs, created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		project.ID, project.Title, nullStr(project.Description), tags, refs,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing project %s: %w", project.ID, err)
	}
	return nil
}

func upsertRepo(q querier, repo *types.Repo) error {
	tags, err := marshalStrings(repo.Tags)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO repo (id, remote, path, tags, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   remote = excluded.remote, path = excluded.path, tags = excluded.tags,
		   created_at = excluded.created_at`,
		repo.ID, repo.Remote, nullStr(repo.Path), tags, repo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing repo %s: %w", repo.ID, err)
	}
	return replaceJoin(q, "project_repo", "repo_id", "project_id", repo.ID, repo.ProjectIDs)
}

func upsertTaskList(q querier, list *types.TaskList) error {
	tags, err := marshalStrings(list.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(list.ExternalRefs)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO task_list (id, title, description, notes, project_id, tags, external_refs,
		 status, created_at, updated_at, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, notes = excluded.notes,
		   project_id = excluded.project_id, tags = excluded.tags,
		   external_refs = excluded.external_refs, status = excluded.status,
		   created_at = excluded.created_at, updated_at = excluded.updated_at,
		   archived_at = excluded.archived_at`,
		list.ID, list.Title, nullStr(list.Description), nullStr(list.Notes), list.ProjectID,
		tags, refs, list.Status, list.CreatedAt, list.UpdatedAt, nullStr(list.ArchivedAt),
	)
	if err != nil {
		return fmt.Errorf("importing task list %s: %w", list.ID, err)
	}
	return replaceJoin(q, "task_list_repo", "task_list_id", "repo_id", list.ID, list.RepoIDs)
}

func upsertTask(q querier, task *types.Task) error {
	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(task.ExternalRefs)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO task (id, list_id, parent_id, title, description, status, priority,
		 tags, external_refs, created_at, started_at, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   list_id = excluded.list_id, parent_id = excluded.parent_id, title = excluded.title,
		   description = excluded.description, status = excluded.status,
		   priority = excluded.priority, tags = excluded.tags,
		   external_refs = excluded.external_refs, created_at = excluded.created_at,
		   started_at = excluded.started_at, completed_at = excluded.completed_at,
		   updated_at = excluded.updated_at`,
		task.ID, task.ListID, nullStr(task.ParentID), task.Title, nullStr(task.Description),
		task.Status, nullInt(task.Priority), tags, refs,
		task.CreatedAt, nullStr(task.StartedAt), nullStr(task.CompletedAt), task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing task %s: %w", task.ID, err)
	}
	return nil
}

func upsertNote(q querier, note *types.Note) error {
	tags, err := marshalStrings(note.Tags)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		`INSERT INTO note (id, title, content, tags, parent_id, idx, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, content = excluded.content, tags = excluded.tags,
		   parent_id = excluded.parent_id, idx = excluded.idx,
		   created_at = excluded.created_at, updated_at = excluded.updated_at`,
		note.ID, note.Title, note.Content, tags, nullStr(note.ParentID), nullInt(note.Idx),
		note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing note %s: %w", note.ID, err)
	}
	if err := replaceJoin(q, "note_repo", "note_id", "repo_id", note.ID, note.RepoIDs); err != nil {
		return err
	}
	return replaceJoin(q, "project_note", "note_id", "project_id", note.ID, note.ProjectIDs)
}

func upsertSkill(q querier, skill *types.Skill) (bool, error) {
	tags, err := marshalStrings(skill.Tags)
	if err != nil {
		return false, err
	}
	_, err = q.Exec(
		`INSERT INTO skill (id, name, description, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name, description = excluded.description,
		   content = excluded.content, tags = excluded.tags,
		   created_at = excluded.created_at, updated_at = excluded.updated_at`,
		skill.ID, skill.Name, skill.Description, skill.Content, tags,
		skill.CreatedAt, skill.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("importing skill %s: %w", skill.ID, err)
	}
	if err := replaceJoin(q, "project_skill", "skill_id", "project_id", skill.ID, skill.ProjectIDs); err != nil {
		return false, err
	}
	return reconcileAttachments(q, skill.ID, skill.Attachments)
}
