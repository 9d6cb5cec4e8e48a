package sqlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/satchel/internal/jsonl"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// seedGraph populates a store with one of everything, fully linked.
func seedGraph(t *testing.T, store *Store) (project *types.Project, repo *types.Repo, list *types.TaskList, task *types.Task, note *types.Note, skill *types.Skill) {
	t.Helper()

	project = &types.Project{Title: "satchel", Tags: []string{"go", "sync"}}
	if err := store.CreateProject(project); err != nil {
		t.Fatal(err)
	}
	repo = &types.Repo{Remote: "git@example.com:a/b.git", ProjectIDs: []string{project.ID}}
	if err := store.CreateRepo(repo); err != nil {
		t.Fatal(err)
	}
	list = &types.TaskList{Title: "backlog", ProjectID: project.ID, RepoIDs: []string{repo.ID}}
	if err := store.CreateTaskList(list); err != nil {
		t.Fatal(err)
	}
	task = &types.Task{Title: "write importer", ListID: list.ID, Status: types.TaskInProgress}
	if err := store.CreateTask(task); err != nil {
		t.Fatal(err)
	}
	note = &types.Note{Title: "design", Content: "# Notes", ProjectIDs: []string{project.ID}, RepoIDs: []string{repo.ID}}
	if err := store.CreateNote(note); err != nil {
		t.Fatal(err)
	}
	skill = &types.Skill{
		Name: "deploy", Content: "# Deploy", ProjectIDs: []string{project.ID},
		Attachments: []types.SkillAttachment{
			{Type: types.AttachmentScript, Filename: "run.sh", Content: b64("echo deploy")},
		},
	}
	if err := store.CreateSkill(skill); err != nil {
		t.Fatal(err)
	}
	return
}

func TestExportWritesAllSixFilesEvenWhenEmpty(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	counts, err := store.ExportAll(dir)
	if err != nil {
		t.Fatalf("exporting empty store: %v", err)
	}
	if counts.Total() != 0 {
		t.Fatalf("expected zero counts, got %+v", counts)
	}

	for _, name := range []string{FileRepos, FileProjects, FileLists, FileTasks, FileNotes, FileSkills} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t)
	project, repo, list, task, note, skill := seedGraph(t, src)

	dir := t.TempDir()
	exported, err := src.ExportAll(dir)
	if err != nil {
		t.Fatalf("exporting: %v", err)
	}
	want := types.SyncCounts{Repos: 1, Projects: 1, TaskLists: 1, Tasks: 1, Notes: 1, Skills: 1}
	if exported != want {
		t.Fatalf("export counts = %+v, want %+v", exported, want)
	}

	dst := newTestStore(t)
	imported, err := dst.ImportAll(dir)
	if err != nil {
		t.Fatalf("importing: %v", err)
	}
	if imported != want {
		t.Fatalf("import counts = %+v, want %+v", imported, want)
	}

	gotProject, err := dst.GetProject(project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotProject.Title != project.Title || gotProject.CreatedAt != project.CreatedAt {
		t.Fatalf("project did not round trip: %+v", gotProject)
	}
	if len(gotProject.RepoIDs) != 1 || gotProject.RepoIDs[0] != repo.ID {
		t.Fatalf("project repo links lost: %v", gotProject.RepoIDs)
	}
	if len(gotProject.TaskListIDs) != 1 || gotProject.TaskListIDs[0] != list.ID {
		t.Fatalf("project list links lost: %v", gotProject.TaskListIDs)
	}

	gotTask, err := dst.GetTask(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gotTask.Status != types.TaskInProgress || gotTask.UpdatedAt != task.UpdatedAt {
		t.Fatalf("task did not round trip: %+v", gotTask)
	}

	gotNote, err := dst.GetNote(note.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotNote.ProjectIDs) != 1 || len(gotNote.RepoIDs) != 1 {
		t.Fatalf("note links lost: %+v", gotNote)
	}

	gotSkill, err := dst.GetSkill(skill.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotSkill.Attachments) != 1 || gotSkill.Attachments[0].Filename != "run.sh" {
		t.Fatalf("skill attachments lost: %+v", gotSkill.Attachments)
	}
	if gotSkill.Attachments[0].ContentHash != skill.Attachments[0].ContentHash {
		t.Fatal("attachment hash changed across round trip")
	}
}

func TestImportIsIdempotent(t *testing.T) {
	src := newTestStore(t)
	seedGraph(t, src)

	dir := t.TempDir()
	if _, err := src.ExportAll(dir); err != nil {
		t.Fatal(err)
	}

	dst := newTestStore(t)
	first, err := dst.ImportAll(dir)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := dst.ImportAll(dir)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if first != second {
		t.Fatalf("counts diverged: %+v then %+v", first, second)
	}

	dbCounts, err := dst.CountEntities()
	if err != nil {
		t.Fatal(err)
	}
	if dbCounts != first {
		t.Fatalf("rows duplicated: db has %+v", dbCounts)
	}
}

func TestImportTimestampsVerbatim(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p1", Title: "old project",
		CreatedAt: "2020-01-02T03:04:05Z", UpdatedAt: "2021-06-07T08:09:10Z",
	}})

	if _, err := store.ImportAll(dir); err != nil {
		t.Fatalf("importing: %v", err)
	}

	got, err := store.GetProject("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CreatedAt != "2020-01-02T03:04:05Z" || got.UpdatedAt != "2021-06-07T08:09:10Z" {
		t.Fatalf("timestamps rewritten: %+v", got)
	}

	// Re-import over an existing row must also keep created_at verbatim.
	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p1", Title: "renamed",
		CreatedAt: "2020-01-02T03:04:05Z", UpdatedAt: "2022-01-01T00:00:00Z",
	}})
	if _, err := store.ImportAll(dir); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetProject("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "renamed" || got.CreatedAt != "2020-01-02T03:04:05Z" {
		t.Fatalf("upsert mangled row: %+v", got)
	}
}

func TestImportToleratesForwardReferences(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	// The task lands before its list, the list before its project. Deferred
	// FK checks make this legal as long as everything resolves by commit.
	writeSyncFile(t, dir, FileTasks, []types.Task{{
		ID: "t1", ListID: "l1", Title: "task", Status: types.TaskTodo,
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})
	writeSyncFile(t, dir, FileLists, []types.TaskList{{
		ID: "l1", Title: "list", ProjectID: "p1", Status: types.TaskListActive,
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})
	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p1", Title: "project",
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})

	counts, err := store.ImportAll(dir)
	if err != nil {
		t.Fatalf("importing forward references: %v", err)
	}
	if counts.Tasks != 1 || counts.TaskLists != 1 || counts.Projects != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestImportRollsBackOnDanglingReference(t *testing.T) {
	store := newTestStore(t)
	seedGraph(t, store)
	before, err := store.CountEntities()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p-new", Title: "valid project",
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})
	writeSyncFile(t, dir, FileTasks, []types.Task{{
		ID: "t-dangling", ListID: "no-such-list", Title: "orphan", Status: types.TaskTodo,
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})

	counts, err := store.ImportAll(dir)
	if !errors.Is(err, types.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}
	if counts.Total() != 0 {
		t.Fatalf("failed import must report zero counts, got %+v", counts)
	}

	// Nothing from the snapshot landed, including the valid project.
	after, err := store.CountEntities()
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Fatalf("rollback incomplete: before %+v, after %+v", before, after)
	}
	if _, err := store.GetProject("p-new"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("valid project leaked through rollback: %v", err)
	}
}

// A rejected snapshot must leave the connection out of any transaction:
// writes made afterwards have to be durable across a reopen.
func TestStoreWritableAfterFailedImport(t *testing.T) {
	dataDir := t.TempDir()
	store, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: dataDir})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	dir := t.TempDir()
	writeSyncFile(t, dir, FileTasks, []types.Task{{
		ID: "t-dangling", ListID: "no-such-list", Title: "orphan", Status: types.TaskTodo,
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})
	if _, err := store.ImportAll(dir); !errors.Is(err, types.ErrConstraint) {
		t.Fatalf("expected ErrConstraint, got %v", err)
	}

	project := &types.Project{Title: "after the storm"}
	if err := store.CreateProject(project); err != nil {
		t.Fatalf("creating project after failed import: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: dataDir})
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.GetProject(project.ID); err != nil {
		t.Fatalf("project written after failed import did not survive reopen: %v", err)
	}
	if _, err := reopened.GetTask("t-dangling"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("orphan row leaked through rollback: %v", err)
	}
}

func TestImportAbortsOnMalformedLine(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	content := `{"id":"p1","title":"ok","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}
{not json
`
	if err := os.WriteFile(filepath.Join(dir, FileProjects), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.ImportAll(dir); err == nil {
		t.Fatal("expected parse error")
	}

	counts, err := store.CountEntities()
	if err != nil {
		t.Fatal(err)
	}
	if counts.Total() != 0 {
		t.Fatalf("rows written despite parse failure: %+v", counts)
	}
}

func TestImportMissingFilesMeanZeroRecords(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p1", Title: "only projects",
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})

	counts, err := store.ImportAll(dir)
	if err != nil {
		t.Fatalf("importing partial dir: %v", err)
	}
	if counts.Projects != 1 || counts.Total() != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestImportDuplicateIDLastLineWins(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	writeSyncFile(t, dir, FileProjects, []types.Project{
		{ID: "p1", Title: "first", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"},
		{ID: "p1", Title: "second", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-02T00:00:00Z"},
	})

	if _, err := store.ImportAll(dir); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetProject("p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "second" {
		t.Fatalf("want last line to win, got title %q", got.Title)
	}
}

func TestImportReplacesJoinRows(t *testing.T) {
	store := newTestStore(t)
	project, repo, _, _, _, _ := seedGraph(t, store)

	dir := t.TempDir()
	if _, err := store.ExportAll(dir); err != nil {
		t.Fatal(err)
	}

	// Strip the repo's project links in the snapshot and re-import.
	writeSyncFile(t, dir, FileRepos, []types.Repo{{
		ID: repo.ID, Remote: repo.Remote, Tags: repo.Tags,
		ProjectIDs: []string{}, CreatedAt: repo.CreatedAt,
	}})

	if _, err := store.ImportAll(dir); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetRepo(repo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.ProjectIDs) != 0 {
		t.Fatalf("join rows not replaced: %v", got.ProjectIDs)
	}
	gotProject, err := store.GetProject(project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(gotProject.RepoIDs) != 0 {
		t.Fatalf("project side still linked: %v", gotProject.RepoIDs)
	}
}

func TestImportRejectsInvalidStatus(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	writeSyncFile(t, dir, FileTasks, []types.Task{{
		ID: "t1", ListID: "l1", Title: "t", Status: "sideways",
		CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})

	if _, err := store.ImportAll(dir); !errors.Is(err, types.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestImportRejectsMissingRequiredFields(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	writeSyncFile(t, dir, FileProjects, []types.Project{{
		ID: "p1", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z",
	}})

	if _, err := store.ImportAll(dir); !errors.Is(err, types.ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

// writeSyncFile serializes records as one JSON object per line.
func writeSyncFile[T any](t *testing.T, dir, name string, records []T) {
	t.Helper()
	if err := jsonl.Write(filepath.Join(dir, name), records); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
