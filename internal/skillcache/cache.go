// Package skillcache materializes skill attachments on disk so agents can
// run scripts and read reference files directly. The cache lives under the
// data directory and is safe to delete at any time; extraction rebuilds it
// from the database.
package skillcache

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Cache directory layout: <data>/cache/skills/<skill-id>/<type-dir>/<file>.
const (
	cacheDirName  = "cache"
	skillsDirName = "skills"
)

// typeDirs maps attachment types to their subdirectory.
var typeDirs = map[string]string{
	types.AttachmentScript:    "scripts",
	types.AttachmentReference: "references",
	types.AttachmentAsset:     "assets",
}

// Dir returns the cache directory for one skill.
func Dir(dataDir, skillID string) string {
	return filepath.Join(dataDir, cacheDirName, skillsDirName, skillID)
}

// Extract writes a skill's attachments into its cache directory, replacing
// whatever was there. Shell scripts come out executable. Returns the skill's
// cache directory.
func Extract(dataDir, skillID string, attachments []types.SkillAttachment) (string, error) {
	dir := Dir(dataDir, skillID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clearing skill cache: %w", err)
	}

	for _, att := range attachments {
		sub, ok := typeDirs[att.Type]
		if !ok {
			return "", fmt.Errorf("attachment %s: %w: %q", att.Filename, types.ErrInvalidType, att.Type)
		}

		decoded, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return "", fmt.Errorf("attachment %s is not valid base64: %w", att.Filename, types.ErrInvalidData)
		}

		// Filenames come from the database; strip any path so an attachment
		// cannot escape its type directory.
		name := filepath.Base(att.Filename)
		destDir := filepath.Join(dir, sub)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", fmt.Errorf("creating cache dir: %w", err)
		}

		mode := os.FileMode(0o644)
		if att.Type == types.AttachmentScript && isShellScript(name) {
			mode = 0o755
		}
		if err := os.WriteFile(filepath.Join(destDir, name), decoded, mode); err != nil {
			return "", fmt.Errorf("writing attachment %s: %w", name, err)
		}
	}

	return dir, nil
}

// Invalidate removes one skill's cache directory.
func Invalidate(dataDir, skillID string) error {
	if err := os.RemoveAll(Dir(dataDir, skillID)); err != nil {
		return fmt.Errorf("removing skill cache: %w", err)
	}
	return nil
}

// ClearAll removes the entire skill cache.
func ClearAll(dataDir string) error {
	if err := os.RemoveAll(filepath.Join(dataDir, cacheDirName, skillsDirName)); err != nil {
		return fmt.Errorf("clearing skill cache: %w", err)
	}
	return nil
}

func isShellScript(name string) bool {
	return strings.HasSuffix(name, ".sh") || strings.HasSuffix(name, ".bash")
}
