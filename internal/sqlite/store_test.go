package sqlite

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func strp(s string) *string { return &s }

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: dir})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(dir, DBFileName)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if store.DataDir() != dir {
		t.Fatalf("DataDir() = %q, want %q", store.DataDir(), dir)
	}
}

func TestOpenRejectsInvalidBackend(t *testing.T) {
	_, err := Open(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	store, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	store := newTestStore(t)

	project := &types.Project{Title: "satchel", Description: strp("knowledge backend"), Tags: []string{"go"}}
	if err := store.CreateProject(project); err != nil {
		t.Fatalf("creating project: %v", err)
	}
	if project.ID == "" || project.CreatedAt == "" {
		t.Fatal("create did not populate id and timestamps")
	}

	got, err := store.GetProject(project.ID)
	if err != nil {
		t.Fatalf("fetching project: %v", err)
	}
	if got.Title != "satchel" || *got.Description != "knowledge backend" {
		t.Fatalf("unexpected project: %+v", got)
	}
	if got.RepoIDs == nil || got.TaskListIDs == nil || got.NoteIDs == nil || got.SkillIDs == nil {
		t.Fatal("hydrated ID lists must be non-nil")
	}

	got.Title = "satchel v2"
	if err := store.UpdateProject(got); err != nil {
		t.Fatalf("updating project: %v", err)
	}
	got2, err := store.GetProject(project.ID)
	if err != nil {
		t.Fatalf("refetching project: %v", err)
	}
	if got2.Title != "satchel v2" {
		t.Fatalf("update not applied: %+v", got2)
	}
	if got2.UpdatedAt < got2.CreatedAt {
		t.Fatalf("updated_at %q before created_at %q", got2.UpdatedAt, got2.CreatedAt)
	}

	if err := store.DeleteProject(project.ID); err != nil {
		t.Fatalf("deleting project: %v", err)
	}
	if _, err := store.GetProject(project.ID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetMissingEntityReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetProject("nope"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("project: got %v", err)
	}
	if _, err := store.GetRepo("nope"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("repo: got %v", err)
	}
	if _, err := store.GetTask("nope"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("task: got %v", err)
	}
}

func TestRepoOwnsProjectLinks(t *testing.T) {
	store := newTestStore(t)

	p1 := &types.Project{Title: "one"}
	p2 := &types.Project{Title: "two"}
	for _, p := range []*types.Project{p1, p2} {
		if err := store.CreateProject(p); err != nil {
			t.Fatalf("creating project: %v", err)
		}
	}

	repo := &types.Repo{Remote: "git@example.com:a/b.git", ProjectIDs: []string{p1.ID, p2.ID}}
	if err := store.CreateRepo(repo); err != nil {
		t.Fatalf("creating repo: %v", err)
	}

	got, err := store.GetRepo(repo.ID)
	if err != nil {
		t.Fatalf("fetching repo: %v", err)
	}
	if len(got.ProjectIDs) != 2 {
		t.Fatalf("want 2 project links, got %v", got.ProjectIDs)
	}

	// Update replaces the link set wholesale.
	got.ProjectIDs = []string{p2.ID}
	if err := store.UpdateRepo(got); err != nil {
		t.Fatalf("updating repo: %v", err)
	}
	got, err = store.GetRepo(repo.ID)
	if err != nil {
		t.Fatalf("refetching repo: %v", err)
	}
	if len(got.ProjectIDs) != 1 || got.ProjectIDs[0] != p2.ID {
		t.Fatalf("links not replaced: %v", got.ProjectIDs)
	}

	// The project side sees the join.
	proj, err := store.GetProject(p2.ID)
	if err != nil {
		t.Fatalf("fetching project: %v", err)
	}
	if len(proj.RepoIDs) != 1 || proj.RepoIDs[0] != repo.ID {
		t.Fatalf("project side not hydrated: %v", proj.RepoIDs)
	}
}

func TestDeleteProjectWithTaskListsFails(t *testing.T) {
	store := newTestStore(t)

	project := &types.Project{Title: "p"}
	if err := store.CreateProject(project); err != nil {
		t.Fatalf("creating project: %v", err)
	}
	list := &types.TaskList{Title: "l", ProjectID: project.ID}
	if err := store.CreateTaskList(list); err != nil {
		t.Fatalf("creating list: %v", err)
	}

	if err := store.DeleteProject(project.ID); !errors.Is(err, types.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}

	if err := store.DeleteTaskList(list.ID); err != nil {
		t.Fatalf("deleting list: %v", err)
	}
	if err := store.DeleteProject(project.ID); err != nil {
		t.Fatalf("deleting project after list removal: %v", err)
	}
}

func TestCreateTaskListRequiresProject(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateTaskList(&types.TaskList{Title: "orphan", ProjectID: "missing"})
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	err = store.CreateTaskList(&types.TaskList{Title: "no project"})
	if !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	store := newTestStore(t)

	project := &types.Project{Title: "p"}
	if err := store.CreateProject(project); err != nil {
		t.Fatal(err)
	}
	list := &types.TaskList{Title: "l", ProjectID: project.ID}
	if err := store.CreateTaskList(list); err != nil {
		t.Fatal(err)
	}
	task := &types.Task{Title: "t", ListID: list.ID}
	if err := store.CreateTask(task); err != nil {
		t.Fatal(err)
	}
	if task.Status != types.TaskBacklog {
		t.Fatalf("default status = %q", task.Status)
	}

	if err := store.SetTaskStatus(task.ID, types.TaskInProgress); err != nil {
		t.Fatalf("starting task: %v", err)
	}
	got, err := store.GetTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StartedAt == nil {
		t.Fatal("started_at not stamped")
	}

	if err := store.SetTaskStatus(task.ID, types.TaskDone); err != nil {
		t.Fatalf("completing task: %v", err)
	}
	got, err = store.GetTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	if err := store.SetTaskStatus(task.ID, "bogus"); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSubtaskBlocksParentDeletion(t *testing.T) {
	store := newTestStore(t)

	project := &types.Project{Title: "p"}
	if err := store.CreateProject(project); err != nil {
		t.Fatal(err)
	}
	list := &types.TaskList{Title: "l", ProjectID: project.ID}
	if err := store.CreateTaskList(list); err != nil {
		t.Fatal(err)
	}
	parent := &types.Task{Title: "parent", ListID: list.ID}
	if err := store.CreateTask(parent); err != nil {
		t.Fatal(err)
	}
	child := &types.Task{Title: "child", ListID: list.ID, ParentID: &parent.ID}
	if err := store.CreateTask(child); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteTask(parent.ID); !errors.Is(err, types.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	if err := store.DeleteTask(child.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteTask(parent.ID); err != nil {
		t.Fatal(err)
	}
}

func TestNoteSubnoteCount(t *testing.T) {
	store := newTestStore(t)

	parent := &types.Note{Title: "parent", Content: "root"}
	if err := store.CreateNote(parent); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		idx := i
		child := &types.Note{Title: "child", Content: "c", ParentID: &parent.ID, Idx: &idx}
		if err := store.CreateNote(child); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.GetNote(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SubnoteCount == nil || *got.SubnoteCount != 2 {
		t.Fatalf("subnote count = %v, want 2", got.SubnoteCount)
	}
}

func TestSkillAttachmentUniquePerFilename(t *testing.T) {
	store := newTestStore(t)

	skill := &types.Skill{Name: "deploy", Content: "# Deploy"}
	if err := store.CreateSkill(skill); err != nil {
		t.Fatal(err)
	}

	att := types.SkillAttachment{
		SkillID: skill.ID, Type: types.AttachmentScript,
		Filename: "run.sh", Content: b64("echo"),
	}
	if err := store.CreateAttachment(&att); err != nil {
		t.Fatalf("creating attachment: %v", err)
	}

	dup := types.SkillAttachment{
		SkillID: skill.ID, Type: types.AttachmentScript,
		Filename: "run.sh", Content: b64("echo again"),
	}
	if err := store.CreateAttachment(&dup); !errors.Is(err, types.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestAttachmentHashMatchesDecodedContent(t *testing.T) {
	store := newTestStore(t)

	skill := &types.Skill{Name: "s", Content: "c"}
	if err := store.CreateSkill(skill); err != nil {
		t.Fatal(err)
	}

	att := types.SkillAttachment{
		SkillID: skill.ID, Type: types.AttachmentAsset,
		Filename: "a.bin", Content: b64("hello"),
	}
	if err := store.CreateAttachment(&att); err != nil {
		t.Fatal(err)
	}

	// hex sha256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if att.ContentHash != want {
		t.Fatalf("content hash = %q, want %q", att.ContentHash, want)
	}
}

func TestDeleteSkillCascadesAttachments(t *testing.T) {
	store := newTestStore(t)

	skill := &types.Skill{Name: "s", Content: "c", Attachments: []types.SkillAttachment{
		{Type: types.AttachmentReference, Filename: "a.md", Content: b64("a")},
	}}
	if err := store.CreateSkill(skill); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteSkill(skill.ID); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM skill_attachment").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("attachments not cascaded, %d remain", count)
	}
}

func TestCountEntities(t *testing.T) {
	store := newTestStore(t)

	project := &types.Project{Title: "p"}
	if err := store.CreateProject(project); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateRepo(&types.Repo{Remote: "r"}); err != nil {
		t.Fatal(err)
	}

	counts, err := store.CountEntities()
	if err != nil {
		t.Fatal(err)
	}
	if counts.Projects != 1 || counts.Repos != 1 || counts.Total() != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
