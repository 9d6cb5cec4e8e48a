// Task list CRUD. A task list belongs to exactly one project and owns its
// repo links via task_list_repo.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateTaskList inserts a new task list under its project.
func (s *Store) CreateTaskList(list *types.TaskList) error {
	if list.Title == "" {
		return fmt.Errorf("task list title is required: %w", types.ErrInvalidData)
	}
	if list.ProjectID == "" {
		return fmt.Errorf("task list project_id is required: %w", types.ErrInvalidData)
	}
	if list.Status == "" {
		list.Status = types.TaskListActive
	}
	if _, err := types.ParseTaskListStatus(list.Status); err != nil {
		return err
	}

	if list.ID == "" {
		list.ID = newID()
	}
	now := nowRFC3339()
	list.CreatedAt = now
	list.UpdatedAt = now

	tags, err := marshalStrings(list.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(list.ExternalRefs)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO task_list (id, title, description, notes, project_id, tags, external_refs,
		 status, created_at, updated_at, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID, list.Title, nullStr(list.Description), nullStr(list.Notes), list.ProjectID,
		tags, refs, list.Status, list.CreatedAt, list.UpdatedAt, nullStr(list.ArchivedAt),
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task list project %s: %w", list.ProjectID, types.ErrNotFound)
		}
		return fmt.Errorf("inserting task list: %w", err)
	}
	return replaceJoin(s.db, "task_list_repo", "task_list_id", "repo_id", list.ID, list.RepoIDs)
}

// GetTaskList fetches a task list with its repo links hydrated.
func (s *Store) GetTaskList(id string) (*types.TaskList, error) {
	row := s.db.QueryRow(
		`SELECT id, title, description, notes, project_id, tags, external_refs,
		 status, created_at, updated_at, archived_at
		 FROM task_list WHERE id = ?`, id)
	list, err := scanTaskList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task list %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching task list: %w", err)
	}
	if err := s.hydrateTaskList(s.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListTaskLists returns all task lists ordered by creation time, without
// hydrating repo links.
func (s *Store) ListTaskLists() ([]*types.TaskList, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, notes, project_id, tags, external_refs,
		 status, created_at, updated_at, archived_at
		 FROM task_list ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing task lists: %w", err)
	}
	defer rows.Close()

	lists := []*types.TaskList{}
	for rows.Next() {
		list, err := scanTaskList(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task list row: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// UpdateTaskList rewrites a task list's fields and replaces its repo links.
// Moving a list to another project is allowed; the target must exist.
func (s *Store) UpdateTaskList(list *types.TaskList) error {
	if list.Title == "" {
		return fmt.Errorf("task list title is required: %w", types.ErrInvalidData)
	}
	if _, err := types.ParseTaskListStatus(list.Status); err != nil {
		return err
	}

	tags, err := marshalStrings(list.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(list.ExternalRefs)
	if err != nil {
		return err
	}
	list.UpdatedAt = nowRFC3339()

	res, err := s.db.Exec(
		`UPDATE task_list SET title = ?, description = ?, notes = ?, project_id = ?, tags = ?,
		 external_refs = ?, status = ?, updated_at = ?, archived_at = ? WHERE id = ?`,
		list.Title, nullStr(list.Description), nullStr(list.Notes), list.ProjectID,
		tags, refs, list.Status, list.UpdatedAt, nullStr(list.ArchivedAt), list.ID,
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task list project %s: %w", list.ProjectID, types.ErrNotFound)
		}
		return fmt.Errorf("updating task list: %w", err)
	}
	if err := requireRow(res, "task list", list.ID); err != nil {
		return err
	}
	return replaceJoin(s.db, "task_list_repo", "task_list_id", "repo_id", list.ID, list.RepoIDs)
}

// ArchiveTaskList marks a list archived and stamps archived_at.
func (s *Store) ArchiveTaskList(id string) error {
	now := nowRFC3339()
	res, err := s.db.Exec(
		"UPDATE task_list SET status = ?, archived_at = ?, updated_at = ? WHERE id = ?",
		types.TaskListArchived, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("archiving task list: %w", err)
	}
	return requireRow(res, "task list", id)
}

// DeleteTaskList removes a task list and its repo links. Lists that still
// contain tasks cannot be deleted.
func (s *Store) DeleteTaskList(id string) error {
	if _, err := s.db.Exec("DELETE FROM task_list_repo WHERE task_list_id = ?", id); err != nil {
		return fmt.Errorf("clearing task list links: %w", err)
	}

	res, err := s.db.Exec("DELETE FROM task_list WHERE id = ?", id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task list %s still has tasks: %w", id, types.ErrConstraint)
		}
		return fmt.Errorf("deleting task list: %w", err)
	}
	return requireRow(res, "task list", id)
}

func scanTaskList(row scanner) (*types.TaskList, error) {
	var list types.TaskList
	var description, notes, archivedAt sql.NullString
	var tags, refs string
	err := row.Scan(&list.ID, &list.Title, &description, &notes, &list.ProjectID,
		&tags, &refs, &list.Status, &list.CreatedAt, &list.UpdatedAt, &archivedAt)
	if err != nil {
		return nil, err
	}
	list.Description = strPtr(description)
	list.Notes = strPtr(notes)
	list.ArchivedAt = strPtr(archivedAt)
	if list.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	if list.ExternalRefs, err = unmarshalStrings(refs); err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *Store) hydrateTaskList(q querier, list *types.TaskList) error {
	var err error
	list.RepoIDs, err = queryIDs(q,
		"SELECT repo_id FROM task_list_repo WHERE task_list_id = ? ORDER BY repo_id", list.ID)
	if err != nil {
		return fmt.Errorf("loading task list repos: %w", err)
	}
	return nil
}
