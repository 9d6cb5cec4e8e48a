package types

import "fmt"

// Attachment types.
const (
	AttachmentScript    = "script"
	AttachmentReference = "reference"
	AttachmentAsset     = "asset"
)

// validAttachmentTypes is the set of recognized attachment type values.
var validAttachmentTypes = map[string]bool{
	AttachmentScript:    true,
	AttachmentReference: true,
	AttachmentAsset:     true,
}

// ParseAttachmentType validates an attachment type string.
func ParseAttachmentType(s string) (string, error) {
	if !validAttachmentTypes[s] {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return s, nil
}

// Skill packages reusable agent instructions (a complete SKILL.md in Content)
// together with its attachment files.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`

	// Linked project IDs (M:N via project_skill). Owned by the skill record
	// during import.
	ProjectIDs []string `json:"project_ids"`

	// Attachments travel inline with the skill: export embeds the full set
	// in the skill's JSONL record and import reconciles against it.
	Attachments []SkillAttachment `json:"attachments"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// SkillAttachment is a content-addressed file owned by a skill. Content is
// base64 encoded; ContentHash is the hex SHA-256 of the decoded bytes and is
// the identity used to detect changes.
type SkillAttachment struct {
	ID          string  `json:"id"`
	SkillID     string  `json:"skill_id"`
	Type        string  `json:"type"`
	Filename    string  `json:"filename"`
	Content     string  `json:"content"`
	ContentHash string  `json:"content_hash"`
	MimeType    *string `json:"mime_type"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
