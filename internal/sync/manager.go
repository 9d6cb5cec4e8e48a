// Package sync orchestrates snapshot export and import around a git-backed
// sync directory. The storage engines own serialization; this package owns
// the git workflow, cross-process locking, and drift reporting.
package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mesh-intelligence/satchel/internal/jsonl"
	"github.com/mesh-intelligence/satchel/internal/paths"
	"github.com/mesh-intelligence/satchel/internal/sqlite"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// LockFileName is the cross-process lock beside the sync directory. Export
// and import hold it so two satchel processes cannot interleave a git
// operation with a half-written snapshot.
const LockFileName = "sync.lock"

// ErrLocked is returned when another process holds the sync lock.
var ErrLocked = errors.New("another sync operation is in progress")

// ErrNotInitialized is returned by Export and Import before Init has run.
var ErrNotInitialized = errors.New("sync directory is not initialized")

// Engine is the slice of the storage layer the orchestrator needs.
// *sqlite.Store satisfies it.
type Engine interface {
	ExportAll(dir string) (types.SyncCounts, error)
	ImportAll(dir string) (types.SyncCounts, error)
	CountEntities() (types.SyncCounts, error)
	DataDir() string
}

var _ Engine = (*sqlite.Store)(nil)

// Manager drives the sync workflow: snapshot files in a git repository
// under the data directory, pushed to and pulled from a remote.
type Manager struct {
	engine Engine
	git    GitOps
	dir    string
	logger *log.Logger
}

// InitResult reports what Init actually did.
type InitResult struct {
	Dir         string `json:"dir"`
	Created     bool   `json:"created"`
	RemoteAdded bool   `json:"remote_added"`
	RemoteURL   string `json:"remote_url,omitempty"`
}

// Status is a point-in-time view of the sync state. DB and Files counts
// diverging means there are changes not yet exported or not yet imported.
type Status struct {
	Initialized bool             `json:"initialized"`
	Dir         string           `json:"dir"`
	RemoteURL   string           `json:"remote_url,omitempty"`
	Clean       bool             `json:"clean"`
	DB          types.SyncCounts `json:"db"`
	Files       types.SyncCounts `json:"files"`
}

// NewManager wires an orchestrator over the given engine and git
// implementation. A nil logger discards output.
func NewManager(engine Engine, git GitOps, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Manager{
		engine: engine,
		git:    git,
		dir:    paths.SyncDir(engine.DataDir()),
		logger: logger,
	}
}

// Dir returns the sync directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Init creates the sync directory, initializes the git repository, and
// configures the remote. Safe to call repeatedly; a second call with a new
// remote URL adds it only if none is configured yet.
func (m *Manager) Init(remoteURL string) (InitResult, error) {
	result := InitResult{Dir: m.dir}

	if _, err := os.Stat(filepath.Join(m.dir, ".git")); errors.Is(err, fs.ErrNotExist) {
		result.Created = true
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return InitResult{}, fmt.Errorf("creating sync dir: %w", err)
	}
	if err := m.git.Init(m.dir); err != nil {
		return InitResult{}, err
	}

	current, err := m.git.RemoteURL(m.dir)
	if err != nil {
		return InitResult{}, err
	}
	result.RemoteURL = current

	if remoteURL != "" && current == "" {
		if err := m.git.AddRemote(m.dir, "origin", remoteURL); err != nil {
			return InitResult{}, err
		}
		result.RemoteAdded = true
		result.RemoteURL = remoteURL
	}

	m.logger.Printf("initialized sync dir %s (created=%t remote=%q)", m.dir, result.Created, result.RemoteURL)
	return result, nil
}

// Export snapshots the database into the sync directory and commits the
// result. An up-to-date working tree is not an error. With push set the
// commit is pushed to origin.
func (m *Manager) Export(message string, push bool) (types.SyncCounts, error) {
	if err := m.requireInitialized(); err != nil {
		return types.SyncCounts{}, err
	}
	unlock, err := m.lock()
	if err != nil {
		return types.SyncCounts{}, err
	}
	defer unlock()

	counts, err := m.engine.ExportAll(m.dir)
	if err != nil {
		return types.SyncCounts{}, fmt.Errorf("exporting snapshot: %w", err)
	}
	m.logger.Printf("exported %d entities to %s", counts.Total(), m.dir)

	if err := m.git.Add(m.dir, "."); err != nil {
		return types.SyncCounts{}, err
	}
	if message == "" {
		message = fmt.Sprintf("sync: export %d entities", counts.Total())
	}
	if err := m.git.Commit(m.dir, message); err != nil {
		if !errors.Is(err, ErrNothingToCommit) {
			return types.SyncCounts{}, err
		}
		m.logger.Print("no snapshot changes to commit")
	}

	if push {
		if err := m.git.Push(m.dir); err != nil {
			return types.SyncCounts{}, err
		}
		m.logger.Print("pushed snapshot to origin")
	}
	return counts, nil
}

// Import replays the sync directory into the database, optionally pulling
// from origin first.
func (m *Manager) Import(pull bool) (types.SyncCounts, error) {
	if err := m.requireInitialized(); err != nil {
		return types.SyncCounts{}, err
	}
	unlock, err := m.lock()
	if err != nil {
		return types.SyncCounts{}, err
	}
	defer unlock()

	if pull {
		if err := m.git.Pull(m.dir); err != nil {
			return types.SyncCounts{}, err
		}
		m.logger.Print("pulled snapshot from origin")
	}

	counts, err := m.engine.ImportAll(m.dir)
	if err != nil {
		return types.SyncCounts{}, fmt.Errorf("importing snapshot: %w", err)
	}
	m.logger.Printf("imported %d entities from %s", counts.Total(), m.dir)
	return counts, nil
}

// SyncStatus reports whether sync is initialized, the configured remote,
// working-tree cleanliness, and database versus snapshot entity counts.
func (m *Manager) SyncStatus() (Status, error) {
	status := Status{Dir: m.dir}

	if _, err := os.Stat(filepath.Join(m.dir, ".git")); errors.Is(err, fs.ErrNotExist) {
		return status, nil
	} else if err != nil {
		return Status{}, fmt.Errorf("checking sync dir: %w", err)
	}
	status.Initialized = true

	remote, err := m.git.RemoteURL(m.dir)
	if err != nil {
		return Status{}, err
	}
	status.RemoteURL = remote

	porcelain, err := m.git.StatusPorcelain(m.dir)
	if err != nil {
		return Status{}, err
	}
	status.Clean = porcelain == ""

	if status.DB, err = m.engine.CountEntities(); err != nil {
		return Status{}, err
	}
	if status.Files, err = snapshotCounts(m.dir); err != nil {
		return Status{}, err
	}
	return status, nil
}

func (m *Manager) requireInitialized() error {
	if _, err := os.Stat(filepath.Join(m.dir, ".git")); errors.Is(err, fs.ErrNotExist) {
		return ErrNotInitialized
	} else if err != nil {
		return fmt.Errorf("checking sync dir: %w", err)
	}
	return nil
}

// lock takes the cross-process sync lock without blocking.
func (m *Manager) lock() (func(), error) {
	fl := flock.New(filepath.Join(m.engine.DataDir(), LockFileName))
	held, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring sync lock: %w", err)
	}
	if !held {
		return nil, ErrLocked
	}
	return func() { fl.Unlock() }, nil
}

// snapshotCounts counts records in the sync files without parsing them.
// Missing files count as zero.
func snapshotCounts(dir string) (types.SyncCounts, error) {
	var counts types.SyncCounts
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{sqlite.FileRepos, &counts.Repos},
		{sqlite.FileProjects, &counts.Projects},
		{sqlite.FileLists, &counts.TaskLists},
		{sqlite.FileTasks, &counts.Tasks},
		{sqlite.FileNotes, &counts.Notes},
		{sqlite.FileSkills, &counts.Skills},
	} {
		n, err := jsonl.CountLines(filepath.Join(dir, f.name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return types.SyncCounts{}, fmt.Errorf("counting %s: %w", f.name, err)
		}
		*f.dst = n
	}
	return counts, nil
}
