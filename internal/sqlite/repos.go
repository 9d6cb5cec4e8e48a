// Repo CRUD. The repo record owns its project links: writing a repo
// replaces its project_repo rows from ProjectIDs.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateRepo inserts a new repo and links it to the given projects.
func (s *Store) CreateRepo(repo *types.Repo) error {
	if repo.Remote == "" {
		return fmt.Errorf("repo remote is required: %w", types.ErrInvalidData)
	}

	if repo.ID == "" {
		repo.ID = newID()
	}
	repo.CreatedAt = nowRFC3339()

	tags, err := marshalStrings(repo.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO repo (id, remote, path, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		repo.ID, repo.Remote, nullStr(repo.Path), tags, repo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting repo: %w", err)
	}
	return replaceJoin(s.db, "project_repo", "repo_id", "project_id", repo.ID, repo.ProjectIDs)
}

// GetRepo fetches a repo with its project links hydrated.
func (s *Store) GetRepo(id string) (*types.Repo, error) {
	row := s.db.QueryRow(
		"SELECT id, remote, path, tags, created_at FROM repo WHERE id = ?", id)
	repo, err := scanRepo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repo %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching repo: %w", err)
	}
	if err := s.hydrateRepo(s.db, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// ListRepos returns all repos ordered by creation time, without hydrating
// project links.
func (s *Store) ListRepos() ([]*types.Repo, error) {
	rows, err := s.db.Query(
		"SELECT id, remote, path, tags, created_at FROM repo ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing repos: %w", err)
	}
	defer rows.Close()

	repos := []*types.Repo{}
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repo row: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// UpdateRepo rewrites a repo's fields and replaces its project links.
func (s *Store) UpdateRepo(repo *types.Repo) error {
	if repo.Remote == "" {
		return fmt.Errorf("repo remote is required: %w", types.ErrInvalidData)
	}

	tags, err := marshalStrings(repo.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		"UPDATE repo SET remote = ?, path = ?, tags = ? WHERE id = ?",
		repo.Remote, nullStr(repo.Path), tags, repo.ID,
	)
	if err != nil {
		return fmt.Errorf("updating repo: %w", err)
	}
	if err := requireRow(res, "repo", repo.ID); err != nil {
		return err
	}
	return replaceJoin(s.db, "project_repo", "repo_id", "project_id", repo.ID, repo.ProjectIDs)
}

// DeleteRepo removes a repo and every join row that references it.
func (s *Store) DeleteRepo(id string) error {
	for _, stmt := range []string{
		"DELETE FROM project_repo WHERE repo_id = ?",
		"DELETE FROM task_list_repo WHERE repo_id = ?",
		"DELETE FROM note_repo WHERE repo_id = ?",
	} {
		if _, err := s.db.Exec(stmt, id); err != nil {
			return fmt.Errorf("clearing repo links: %w", err)
		}
	}

	res, err := s.db.Exec("DELETE FROM repo WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting repo: %w", err)
	}
	return requireRow(res, "repo", id)
}

func scanRepo(row scanner) (*types.Repo, error) {
	var repo types.Repo
	var path sql.NullString
	var tags string
	err := row.Scan(&repo.ID, &repo.Remote, &path, &tags, &repo.CreatedAt)
	if err != nil {
		return nil, err
	}
	repo.Path = strPtr(path)
	if repo.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (s *Store) hydrateRepo(q querier, repo *types.Repo) error {
	var err error
	repo.ProjectIDs, err = queryIDs(q,
		"SELECT project_id FROM project_repo WHERE repo_id = ? ORDER BY project_id", repo.ID)
	if err != nil {
		return fmt.Errorf("loading repo projects: %w", err)
	}
	return nil
}
