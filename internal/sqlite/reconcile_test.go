package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func seedSkillWithAttachment(t *testing.T, store *Store) *types.Skill {
	t.Helper()
	skill := &types.Skill{Name: "deploy", Content: "# Deploy", Attachments: []types.SkillAttachment{
		{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo v1")},
	}}
	if err := store.CreateSkill(skill); err != nil {
		t.Fatal(err)
	}
	return skill
}

func TestReconcileUnchangedAttachmentWritesNothing(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)
	before, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := reconcileAttachments(store.db, skill.ID, []types.SkillAttachment{
		{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo v1")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("identical content reported as changed")
	}

	after, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after[0].UpdatedAt != before[0].UpdatedAt || after[0].ID != before[0].ID {
		t.Fatal("unchanged attachment was rewritten")
	}
}

func TestReconcileChangedContentUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)
	before, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}

	changed, err := reconcileAttachments(store.db, skill.ID, []types.SkillAttachment{
		{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo v2"),
			UpdatedAt: "2025-01-01T00:00:00Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("changed content not reported")
	}

	after, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 {
		t.Fatalf("want 1 attachment, got %d", len(after))
	}
	if after[0].ID != before[0].ID {
		t.Fatal("update replaced the row instead of updating it")
	}
	if after[0].ContentHash == before[0].ContentHash {
		t.Fatal("hash not recomputed")
	}
	if after[0].UpdatedAt != "2025-01-01T00:00:00Z" {
		t.Fatalf("payload updated_at not kept: %q", after[0].UpdatedAt)
	}
}

func TestReconcileAddsAndRemoves(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)

	changed, err := reconcileAttachments(store.db, skill.ID, []types.SkillAttachment{
		{Type: types.AttachmentReference, Filename: "guide.md", Content: b64("# Guide")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("add plus remove not reported as changed")
	}

	after, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0].Filename != "guide.md" {
		t.Fatalf("unexpected attachments: %+v", after)
	}
}

func TestReconcileEmptyDesiredRemovesAll(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)

	changed, err := reconcileAttachments(store.db, skill.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("removal not reported as changed")
	}

	after, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 0 {
		t.Fatalf("attachments remain: %+v", after)
	}
}

func TestReconcileDuplicateFilenameLastWins(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)

	changed, err := reconcileAttachments(store.db, skill.ID, []types.SkillAttachment{
		{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo first")},
		{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo last")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("changed content not reported")
	}

	after, err := store.ListAttachments(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 {
		t.Fatalf("want 1 attachment, got %d", len(after))
	}
	wantHash, err := hashContent(b64("echo last"))
	if err != nil {
		t.Fatal(err)
	}
	if after[0].ContentHash != wantHash {
		t.Fatal("earlier duplicate won instead of the last one")
	}
}

func TestReconcileRejectsBadBase64(t *testing.T) {
	store := newTestStore(t)
	skill := seedSkillWithAttachment(t, store)

	_, err := reconcileAttachments(store.db, skill.ID, []types.SkillAttachment{
		{Type: types.AttachmentAsset, Filename: "bad.bin", Content: "!!not-base64!!"},
	})
	if err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
