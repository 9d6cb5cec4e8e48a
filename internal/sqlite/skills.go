// Skill and skill attachment CRUD. Attachments are content addressed:
// Content is base64 on the wire and in storage, ContentHash is the hex
// SHA-256 of the decoded bytes and is what change detection compares.
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// CreateSkill inserts a new skill, its project links, and any inline
// attachments.
func (s *Store) CreateSkill(skill *types.Skill) error {
	if skill.Name == "" {
		return fmt.Errorf("skill name is required: %w", types.ErrInvalidData)
	}

	if skill.ID == "" {
		skill.ID = newID()
	}
	now := nowRFC3339()
	skill.CreatedAt = now
	skill.UpdatedAt = now

	tags, err := marshalStrings(skill.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO skill (id, name, description, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		skill.ID, skill.Name, skill.Description, skill.Content, tags,
		skill.CreatedAt, skill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting skill: %w", err)
	}
	if err := replaceJoin(s.db, "project_skill", "skill_id", "project_id", skill.ID, skill.ProjectIDs); err != nil {
		return err
	}

	for i := range skill.Attachments {
		skill.Attachments[i].SkillID = skill.ID
		if err := s.CreateAttachment(&skill.Attachments[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetSkill fetches a skill with project links and attachments hydrated.
func (s *Store) GetSkill(id string) (*types.Skill, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, content, tags, created_at, updated_at
		 FROM skill WHERE id = ?`, id)
	skill, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching skill: %w", err)
	}
	if err := s.hydrateSkill(s.db, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

// ListSkills returns all skills ordered by creation time, without links or
// attachments.
func (s *Store) ListSkills() ([]*types.Skill, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, content, tags, created_at, updated_at
		 FROM skill ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	skills := []*types.Skill{}
	for rows.Next() {
		skill, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

// UpdateSkill rewrites a skill's scalar fields and replaces its project
// links. Attachments are managed through the attachment operations.
func (s *Store) UpdateSkill(skill *types.Skill) error {
	if skill.Name == "" {
		return fmt.Errorf("skill name is required: %w", types.ErrInvalidData)
	}

	tags, err := marshalStrings(skill.Tags)
	if err != nil {
		return err
	}
	skill.UpdatedAt = nowRFC3339()

	res, err := s.db.Exec(
		`UPDATE skill SET name = ?, description = ?, content = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		skill.Name, skill.Description, skill.Content, tags, skill.UpdatedAt, skill.ID,
	)
	if err != nil {
		return fmt.Errorf("updating skill: %w", err)
	}
	if err := requireRow(res, "skill", skill.ID); err != nil {
		return err
	}
	return replaceJoin(s.db, "project_skill", "skill_id", "project_id", skill.ID, skill.ProjectIDs)
}

// DeleteSkill removes a skill; its attachments go with it via cascade.
func (s *Store) DeleteSkill(id string) error {
	if _, err := s.db.Exec("DELETE FROM project_skill WHERE skill_id = ?", id); err != nil {
		return fmt.Errorf("clearing skill links: %w", err)
	}

	res, err := s.db.Exec("DELETE FROM skill WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting skill: %w", err)
	}
	return requireRow(res, "skill", id)
}

// CreateAttachment inserts an attachment, decoding the base64 content to
// compute its hash. The (skill, filename) pair must be unique.
func (s *Store) CreateAttachment(att *types.SkillAttachment) error {
	if att.SkillID == "" || att.Filename == "" {
		return fmt.Errorf("attachment skill_id and filename are required: %w", types.ErrInvalidData)
	}
	if _, err := types.ParseAttachmentType(att.Type); err != nil {
		return err
	}

	hash, err := hashContent(att.Content)
	if err != nil {
		return err
	}
	att.ContentHash = hash

	if att.ID == "" {
		att.ID = newID()
	}
	now := nowRFC3339()
	att.CreatedAt = now
	att.UpdatedAt = now

	_, err = s.db.Exec(
		`INSERT INTO skill_attachment (id, skill_id, type, filename, content, content_hash,
		 mime_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		att.ID, att.SkillID, att.Type, att.Filename, att.Content, att.ContentHash,
		nullStr(att.MimeType), att.CreatedAt, att.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("attachment %s on skill %s: %w", att.Filename, att.SkillID, types.ErrAlreadyExists)
		}
		if isFKViolation(err) {
			return fmt.Errorf("attachment skill %s: %w", att.SkillID, types.ErrNotFound)
		}
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

// ListAttachments returns a skill's attachments ordered by filename.
func (s *Store) ListAttachments(skillID string) ([]types.SkillAttachment, error) {
	return listAttachments(s.db, skillID)
}

// DeleteAttachment removes one attachment by skill and filename.
func (s *Store) DeleteAttachment(skillID, filename string) error {
	res, err := s.db.Exec(
		"DELETE FROM skill_attachment WHERE skill_id = ? AND filename = ?", skillID, filename)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	return requireRow(res, "attachment", filename)
}

func scanSkill(row scanner) (*types.Skill, error) {
	var skill types.Skill
	var tags string
	err := row.Scan(&skill.ID, &skill.Name, &skill.Description, &skill.Content, &tags,
		&skill.CreatedAt, &skill.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if skill.Tags, err = unmarshalStrings(tags); err != nil {
		return nil, err
	}
	return &skill, nil
}

func (s *Store) hydrateSkill(q querier, skill *types.Skill) error {
	var err error
	skill.ProjectIDs, err = queryIDs(q,
		"SELECT project_id FROM project_skill WHERE skill_id = ? ORDER BY project_id", skill.ID)
	if err != nil {
		return fmt.Errorf("loading skill projects: %w", err)
	}
	skill.Attachments, err = listAttachments(q, skill.ID)
	return err
}

func listAttachments(q querier, skillID string) ([]types.SkillAttachment, error) {
	rows, err := q.Query(
		`SELECT id, skill_id, type, filename, content, content_hash, mime_type,
		 created_at, updated_at
		 FROM skill_attachment WHERE skill_id = ? ORDER BY filename`, skillID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	atts := []types.SkillAttachment{}
	for rows.Next() {
		var att types.SkillAttachment
		var mimeType sql.NullString
		err := rows.Scan(&att.ID, &att.SkillID, &att.Type, &att.Filename, &att.Content,
			&att.ContentHash, &mimeType, &att.CreatedAt, &att.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		att.MimeType = strPtr(mimeType)
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// hashContent decodes base64 attachment content and returns the hex SHA-256
// of the decoded bytes.
func hashContent(content string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("attachment content is not valid base64: %w", types.ErrInvalidData)
	}
	sum := sha256.Sum256(decoded)
	return hex.EncodeToString(sum[:]), nil
}
