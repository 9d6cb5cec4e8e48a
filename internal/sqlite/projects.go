// Project CRUD. Projects are the aggregation root: their relationship ID
// lists are derived from join tables (and the task_list.project_id column)
// at read time, never written from the project record itself.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateProject inserts a new project, generating its ID and timestamps.
func (s *Store) CreateProject(project *types.Project) error {
	if project.Title == "" {
		return fmt.Errorf("project title is required: %w", types.ErrInvalidData)
	}

	if project.ID == "" {
		project.ID = newID()
	}
	now := nowRFC3339()
	project.CreatedAt = now
	project.UpdatedAt = now

	tags, err := marshalStrings(project.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(project.ExternalRefs)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO project (id, title, description, tags, external_refs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Title, nullStr(project.Description), tags, refs,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProject fetches a project with its relationship ID lists hydrated.
func (s *Store) GetProject(id string) (*types.Project, error) {
	row := s.db.QueryRow(
		`SELECT id, title, description, tags, external_refs, created_at, updated_at
		 FROM project WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}
	if err := s.hydrateProject(s.db, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns all projects ordered by creation time. Relationship
// ID lists are not hydrated; call GetProject for a full record.
func (s *Store) ListProjects() ([]*types.Project, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, tags, external_refs, created_at, updated_at
		 FROM project ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []*types.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProject rewrites a project's scalar fields and touches updated_at.
func (s *Store) UpdateProject(project *types.Project) error {
	if project.Title == "" {
		return fmt.Errorf("project title is required: %w", types.ErrInvalidData)
	}

	tags, err := marshalStrings(project.Tags)
	if err != nil {
		return err
	}
	refs, err := marshalStrings(project.ExternalRefs)
	if err != nil {
		return err
	}
	project.UpdatedAt = nowRFC3339()

	res, err := s.db.Exec(
		`UPDATE project SET title = ?, description = ?, tags = ?, external_refs = ?, updated_at = ?
		 WHERE id = ?`,
		project.Title, nullStr(project.Description), tags, refs, project.UpdatedAt, project.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return requireRow(res, "project", project.ID)
}

// DeleteProject removes a project and its join rows. Deleting a project that
// still owns task lists fails with a constraint error; delete the lists
// first.
func (s *Store) DeleteProject(id string) error {
	for _, stmt := range []string{
		"DELETE FROM project_repo WHERE project_id = ?",
		"DELETE FROM project_note WHERE project_id = ?",
		"DELETE FROM project_skill WHERE project_id = ?",
	} {
		if _, err := s.db.Exec(stmt, id); err != nil {
			return fmt.Errorf("clearing project links: %w", err)
		}
	}

	res, err := s.db.Exec("DELETE FROM project WHERE id = ?", id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("project %s still has task lists: %w", id, types.ErrConstraint)
		}
		return fmt.Errorf("deleting project: %w", err)
	}
	return requireRow(res, "project", id)
}

// scanProject reads one project row without hydrating relationships.
func scanProject(row scanner) (*types.Project, error) {
	var project types.Project
	var description sql.NullString
	var tags, refs string
	err := row.Scan(&project.ID, &project.Title, &description, &tags, &refs,
		&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return nil, err
	}
	project.Description = strPtr(description)
	if project.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	if project.ExternalRefs, err = unmarshalStrings(refs); err != nil {
		return nil, err
	}
	return &project, nil
}

// hydrateProject fills the derived relationship ID lists.
func (s *Store) hydrateProject(q querier, project *types.Project) error {
	var err error
	project.RepoIDs, err = queryIDs(q,
		"SELECT repo_id FROM project_repo WHERE project_id = ? ORDER BY repo_id", project.ID)
	if err != nil {
		return fmt.Errorf("loading project repos: %w", err)
	}
	project.TaskListIDs, err = queryIDs(q,
		"SELECT id FROM task_list WHERE project_id = ? ORDER BY created_at, id", project.ID)
	if err != nil {
		return fmt.Errorf("loading project task lists: %w", err)
	}
	project.NoteIDs, err = queryIDs(q,
		"SELECT note_id FROM project_note WHERE project_id = ? ORDER BY note_id", project.ID)
	if err != nil {
		return fmt.Errorf("loading project notes: %w", err)
	}
	project.SkillIDs, err = queryIDs(q,
		"SELECT skill_id FROM project_skill WHERE project_id = ? ORDER BY skill_id", project.ID)
	if err != nil {
		return fmt.Errorf("loading project skills: %w", err)
	}
	return nil
}
