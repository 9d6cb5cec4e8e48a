// Attachment reconciliation for the import engine. Attachments are diffed
// by filename and compared by content hash, so re-importing an unchanged
// snapshot writes nothing and re-importing a changed one converges.
package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// reconcileAttachments brings the stored attachments of one skill in line
// with the imported set. It returns true when anything was inserted, updated,
// or deleted, so the caller can invalidate the skill's on-disk cache after
// commit.
func reconcileAttachments(q querier, skillID string, desired []types.SkillAttachment) (bool, error) {
	current, err := listAttachments(q, skillID)
	if err != nil {
		return false, err
	}
	currentByName := make(map[string]types.SkillAttachment, len(current))
	for _, att := range current {
		currentByName[att.Filename] = att
	}

	// Duplicate filenames within one record collapse to the last occurrence,
	// matching how duplicate IDs resolve during import.
	deduped := make([]types.SkillAttachment, 0, len(desired))
	slot := make(map[string]int, len(desired))
	for _, want := range desired {
		if i, ok := slot[want.Filename]; ok {
			deduped[i] = want
			continue
		}
		slot[want.Filename] = len(deduped)
		deduped = append(deduped, want)
	}

	changed := false
	seen := make(map[string]bool, len(deduped))
	for _, want := range deduped {
		seen[want.Filename] = true

		hash, err := hashContent(want.Content)
		if err != nil {
			return false, fmt.Errorf("attachment %s on skill %s: %w", want.Filename, skillID, err)
		}

		have, exists := currentByName[want.Filename]
		if exists && have.ContentHash == hash {
			continue
		}

		updatedAt := want.UpdatedAt
		if updatedAt == "" {
			updatedAt = nowRFC3339()
		}

		if exists {
			_, err = q.Exec(
				`UPDATE skill_attachment SET type = ?, content = ?, content_hash = ?,
				 mime_type = ?, updated_at = ? WHERE skill_id = ? AND filename = ?`,
				want.Type, want.Content, hash, nullStr(want.MimeType), updatedAt,
				skillID, want.Filename,
			)
			if err != nil {
				return false, fmt.Errorf("updating attachment %s: %w", want.Filename, err)
			}
		} else {
			id := want.ID
			if id == "" {
				id = newID()
			}
			createdAt := want.CreatedAt
			if createdAt == "" {
				createdAt = updatedAt
			}
			_, err = q.Exec(
				`INSERT INTO skill_attachment (id, skill_id, type, filename, content,
				 content_hash, mime_type, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, skillID, want.Type, want.Filename, want.Content, hash,
				nullStr(want.MimeType), createdAt, updatedAt,
			)
			if err != nil {
				return false, fmt.Errorf("inserting attachment %s: %w", want.Filename, err)
			}
		}
		changed = true
	}

	for filename := range currentByName {
		if seen[filename] {
			continue
		}
		if _, err := q.Exec(
			"DELETE FROM skill_attachment WHERE skill_id = ? AND filename = ?",
			skillID, filename,
		); err != nil {
			return false, fmt.Errorf("deleting attachment %s: %w", filename, err)
		}
		changed = true
	}

	return changed, nil
}
