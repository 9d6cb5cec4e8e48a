// Shared helpers for satchel CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mesh-intelligence/satchel/internal/sqlite"
	syncpkg "github.com/mesh-intelligence/satchel/internal/sync"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// openStore resolves the data directory and opens the SQLite store. The
// caller must defer store.Close().
func openStore() (*sqlite.Store, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	store, err := sqlite.Open(types.Config{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// newSyncManager opens the store and wires a sync orchestrator over it. The
// caller must defer store.Close().
func newSyncManager() (*syncpkg.Manager, *sqlite.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)
	return syncpkg.NewManager(store, syncpkg.ExecGit{}, logger), store, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
