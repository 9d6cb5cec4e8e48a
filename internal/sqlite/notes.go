// Note CRUD. The note record owns both of its M:N link sets (repos via
// note_repo, projects via project_note). SubnoteCount is computed on read.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateNote inserts a new note and its links.
func (s *Store) CreateNote(note *types.Note) error {
	if note.Title == "" {
		return fmt.Errorf("note title is required: %w", types.ErrInvalidData)
	}

	if note.ID == "" {
		note.ID = newID()
	}
	now := nowRFC3339()
	note.CreatedAt = now
	note.UpdatedAt = now

	tags, err := marshalStrings(note.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO note (id, title, content, tags, parent_id, idx, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.Title, note.Content, tags, nullStr(note.ParentID), nullInt(note.Idx),
		note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("note parent: %w", types.ErrNotFound)
		}
		return fmt.Errorf("inserting note: %w", err)
	}
	if err := replaceJoin(s.db, "note_repo", "note_id", "repo_id", note.ID, note.RepoIDs); err != nil {
		return err
	}
	return replaceJoin(s.db, "project_note", "note_id", "project_id", note.ID, note.ProjectIDs)
}

// GetNote fetches a note with its links and subnote count hydrated.
func (s *Store) GetNote(id string) (*types.Note, error) {
	row := s.db.QueryRow(
		`SELECT id, title, content, tags, parent_id, idx, created_at, updated_at
		 FROM note WHERE id = ?`, id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching note: %w", err)
	}
	if err := s.hydrateNote(s.db, note); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns all notes ordered by sibling index, then creation time.
// Links and subnote counts are not hydrated.
func (s *Store) ListNotes() ([]*types.Note, error) {
	rows, err := s.db.Query(
		`SELECT id, title, content, tags, parent_id, idx, created_at, updated_at
		 FROM note ORDER BY idx IS NULL, idx, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := []*types.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateNote rewrites a note's fields and replaces its links.
func (s *Store) UpdateNote(note *types.Note) error {
	if note.Title == "" {
		return fmt.Errorf("note title is required: %w", types.ErrInvalidData)
	}

	tags, err := marshalStrings(note.Tags)
	if err != nil {
		return err
	}
	note.UpdatedAt = nowRFC3339()

	res, err := s.db.Exec(
		`UPDATE note SET title = ?, content = ?, tags = ?, parent_id = ?, idx = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title, note.Content, tags, nullStr(note.ParentID), nullInt(note.Idx),
		note.UpdatedAt, note.ID,
	)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("note parent: %w", types.ErrNotFound)
		}
		return fmt.Errorf("updating note: %w", err)
	}
	if err := requireRow(res, "note", note.ID); err != nil {
		return err
	}
	if err := replaceJoin(s.db, "note_repo", "note_id", "repo_id", note.ID, note.RepoIDs); err != nil {
		return err
	}
	return replaceJoin(s.db, "project_note", "note_id", "project_id", note.ID, note.ProjectIDs)
}

// DeleteNote removes a note and its join rows. Notes that still have
// subnotes cannot be deleted.
func (s *Store) DeleteNote(id string) error {
	for _, stmt := range []string{
		"DELETE FROM note_repo WHERE note_id = ?",
		"DELETE FROM project_note WHERE note_id = ?",
	} {
		if _, err := s.db.Exec(stmt, id); err != nil {
			return fmt.Errorf("clearing note links: %w", err)
		}
	}

	res, err := s.db.Exec("DELETE FROM note WHERE id = ?", id)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("note %s still has subnotes: %w", id, types.ErrConstraint)
		}
		return fmt.Errorf("deleting note: %w", err)
	}
	return requireRow(res, "note", id)
}

func scanNote(row scanner) (*types.Note, error) {
	var note types.Note
	var parentID sql.NullString
	var idx sql.NullInt64
	var tags string
	err := row.Scan(&note.ID, &note.Title, &note.Content, &tags, &parentID, &idx,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, err
	}
	note.ParentID = strPtr(parentID)
	note.Idx = intPtr(idx)
	if note.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *Store) hydrateNote(q querier, note *types.Note) error {
	var err error
	note.RepoIDs, err = queryIDs(q,
		"SELECT repo_id FROM note_repo WHERE note_id = ? ORDER BY repo_id", note.ID)
	if err != nil {
		return fmt.Errorf("loading note repos: %w", err)
	}
	note.ProjectIDs, err = queryIDs(q,
		"SELECT project_id FROM project_note WHERE note_id = ? ORDER BY project_id", note.ID)
	if err != nil {
		return fmt.Errorf("loading note projects: %w", err)
	}

	var count int
	if err := q.QueryRow("SELECT COUNT(*) FROM note WHERE parent_id = ?", note.ID).Scan(&count); err != nil {
		return fmt.Errorf("counting subnotes: %w", err)
	}
	note.SubnoteCount = &count
	return nil
}
