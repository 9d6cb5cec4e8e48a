// Package sqlite implements the satchel storage layer on SQLite. The
// database file is the source of truth; the sync engine serializes it to
// JSONL files and re-imports them transactionally.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// DBFileName is the SQLite database file inside the data directory.
const DBFileName = "satchel.db"

// Store provides entity CRUD and the transactional sync engine over one
// SQLite database. The connection pool is capped at a single connection so
// SQLite's single-writer semantics serialize all access; an import holds
// that connection for its whole transaction.
type Store struct {
	db      *sql.DB
	dataDir string
}

// Open validates the config, creates the data directory if needed, opens the
// database, and applies the schema. The caller must Close the store.
func Open(config types.Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	dsn := "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db, dataDir: dataDir}, nil
}

// Close releases the database connection. Idempotent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DataDir returns the data directory the store was opened with.
func (s *Store) DataDir() string {
	return s.dataDir
}

// CountEntities returns live row counts for every entity type. Used by sync
// status to report drift between the database and the JSONL files.
func (s *Store) CountEntities() (types.SyncCounts, error) {
	var counts types.SyncCounts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"repo", &counts.Repos},
		{"project", &counts.Projects},
		{"task_list", &counts.TaskLists},
		{"task", &counts.Tasks},
		{"note", &counts.Notes},
		{"skill", &counts.Skills},
	} {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + q.table).Scan(q.dst); err != nil {
			return types.SyncCounts{}, fmt.Errorf("counting %s rows: %w", q.table, err)
		}
	}
	return counts, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting row helpers run
// inside or outside the import transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// newID generates a UUID v7 for entity IDs created through the live API.
// Imported entities keep their caller-supplied IDs.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// nowRFC3339 returns the current UTC time in the timestamp format used
// everywhere in storage and on the wire.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// queryIDs runs a single-column query and collects the values.
func queryIDs(q querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
