// Task CRUD. Tasks have no join tables; their only relationships are the
// owning list and the optional parent task.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateTask inserts a new task into its list.
func (s *Store) CreateTask(task *types.Task) error {
	if task.Title == "" {
		return fmt.Errorf("task title is required: %w", types.ErrInvalidData)
	}
	if task.ListID == "" {
		return fmt.Errorf("task list_id is required: %w", types.ErrInvalidData)
	}
	if task.Status == "" {
		task.Status = types.TaskBacklog
	}
	if _, err := types.ParseTaskStatus(task.Status); err != nil {
		return err
	}

	if task.ID == "" {
		task.ID = newID()
	}
	now := nowRFC3339()
	task.CreatedAt = now
	task.UpdatedAt = now

	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(task.ExternalRefs)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO task (id, list_id, parent_id, title, description, status, priority,
		 tags, external_refs, created_at, started_at, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.ListID, nullStr(task.ParentID), task.Title, nullStr(task.Description),
		task.Status, nullInt(task.Priority), tags, refs,
		task.CreatedAt, nullStr(task.StartedAt), nullStr(task.CompletedAt), task.UpdatedAt,
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task list or parent: %w", types.ErrNotFound)
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask fetches a single task.
func (s *Store) GetTask(id string) (*types.Task, error) {
	row := s.db.QueryRow(
		`SELECT id, list_id, parent_id, title, description, status, priority,
		 tags, external_refs, created_at, started_at, completed_at, updated_at
		 FROM task WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching task: %w", err)
	}
	return task, nil
}

// ListTasks returns all tasks ordered by creation time.
func (s *Store) ListTasks() ([]*types.Task, error) {
	return s.queryTasks(
		`SELECT id, list_id, parent_id, title, description, status, priority,
		 tags, external_refs, created_at, started_at, completed_at, updated_at
		 FROM task ORDER BY created_at, id`)
}

// ListTasksByList returns the tasks of one list ordered by creation time.
func (s *Store) ListTasksByList(listID string) ([]*types.Task, error) {
	return s.queryTasks(
		`SELECT id, list_id, parent_id, title, description, status, priority,
		 tags, external_refs, created_at, started_at, completed_at, updated_at
		 FROM task WHERE list_id = ? ORDER BY created_at, id`, listID)
}

func (s *Store) queryTasks(query string, args ...any) ([]*types.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*types.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask rewrites a task's fields and touches updated_at.
func (s *Store) UpdateTask(task *types.Task) error {
	if task.Title == "" {
		return fmt.Errorf("task title is required: %w", types.ErrInvalidData)
	}
	if _, err := types.ParseTaskStatus(task.Status); err != nil {
		return err
	}

	tags, err := marshalStrings(task.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(task.ExternalRefs)
	if err != nil {
		return err
	}
	task.UpdatedAt = nowRFC3339()

	res, err := s.db.Exec(
		`UPDATE task SET list_id = ?, parent_id = ?, title = ?, description = ?, status = ?,
		 priority = ?, tags = ?, external_refs = ?, started_at = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		task.ListID, nullStr(task.ParentID), task.Title, nullStr(task.Description), task.Status,
		nullInt(task.Priority), tags, refs,
		nullStr(task.StartedAt), nullStr(task.CompletedAt), task.UpdatedAt, task.ID,
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task list or parent: %w", types.ErrNotFound)
		}
		return fmt.Errorf("updating task: %w", err)
	}
	return requireRow(res, "task", task.ID)
}

// SetTaskStatus transitions a task's status, stamping started_at on the
// first move into in_progress and completed_at on done or cancelled.
func (s *Store) SetTaskStatus(id, status string) error {
	if _, err := types.ParseTaskStatus(status); err != nil {
		return err
	}
	now := nowRFC3339()

	var res sql.Result
	var err error
	switch status {
	case types.TaskInProgress:
		res, err = s.db.Exec(
			`UPDATE task SET status = ?, updated_at = ?, started_at = COALESCE(started_at, ?)
			 WHERE id = ?`, status, now, now, id)
	case types.TaskDone, types.TaskCancelled:
		res, err = s.db.Exec(
			"UPDATE task SET status = ?, updated_at = ?, completed_at = ? WHERE id = ?",
			status, now, now, id)
	default:
		res, err = s.db.Exec(
			"UPDATE task SET status = ?, updated_at = ? WHERE id = ?", status, now, id)
	}
	if err != nil {
		return fmt.Errorf("setting task status: %w", err)
	}
	return requireRow(res, "task", id)
}

// DeleteTask removes a task. Tasks that still have subtasks cannot be
// deleted.
func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM task WHERE id = ?", id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("task %s still has subtasks: %w", id, types.ErrConstraint)
		}
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireRow(res, "task", id)
}

func scanTask(row scanner) (*types.Task, error) {
	var task types.Task
	var parentID, description, startedAt, completedAt sql.NullString
	var priority sql.NullInt64
	var tags, refs string
	err := row.Scan(&task.ID, &task.ListID, &parentID, &task.Title, &description,
		&task.Status, &priority, &tags, &refs,
		&task.CreatedAt, &startedAt, &completedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.ParentID = strPtr(parentID)
	task.Description = strPtr(description)
	task.Priority = intPtr(priority)
	task.StartedAt = strPtr(startedAt)
	task.CompletedAt = strPtr(completedAt)
	if task.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	if task.ExternalRefs, err = unmarshalStrings(refs); err != nil {
		return nil, err
	}
	return &task, nil
}
