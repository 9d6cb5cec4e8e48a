// Sync commands: init, export, import, status.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	syncRemote  string
	syncMessage string
	syncPush    bool
	syncPull    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the database through a git-backed snapshot directory",
}

var syncInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the sync directory as a git repository",
	Long: `Init creates the sync directory under the data directory, runs git init,
and optionally configures the origin remote. Safe to run repeatedly.

Example:
  satchel sync init
  satchel sync init --remote git@example.com:me/satchel-sync.git`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newSyncManager()
		if err != nil {
			return err
		}
		defer store.Close()

		remote := syncRemote
		if remote == "" {
			configDir, err := resolveConfigDir()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			remote = cfg.GetString(cfgKeyRemote)
		}

		result, err := mgr.Init(remote)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(result)
		}
		fmt.Println("Sync directory ready at", result.Dir)
		if result.RemoteURL != "" {
			fmt.Println("Remote:", result.RemoteURL)
		}
		return nil
	},
}

var syncExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the database to JSONL snapshot files and commit them",
	Long: `Export serializes every entity to the sync directory as JSONL, commits
the result, and optionally pushes to origin.

Example:
  satchel sync export
  satchel sync export --message "evening snapshot" --push`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newSyncManager()
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := mgr.Export(syncMessage, syncPush)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(counts)
		}
		fmt.Printf("Exported %d entities\n", counts.Total())
		return nil
	},
}

var syncImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import JSONL snapshot files into the database",
	Long: `Import replays the sync directory into the database in one transaction.
With --pull the latest snapshot is pulled from origin first.

Example:
  satchel sync import
  satchel sync import --pull`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newSyncManager()
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := mgr.Import(syncPull)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(counts)
		}
		fmt.Printf("Imported %d entities\n", counts.Total())
		return nil
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state and database/snapshot drift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, store, err := newSyncManager()
		if err != nil {
			return err
		}
		defer store.Close()

		status, err := mgr.SyncStatus()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(status)
		}

		if !status.Initialized {
			fmt.Println("Sync is not initialized; run 'satchel sync init'")
			return nil
		}
		fmt.Println("Sync directory:", status.Dir)
		if status.RemoteURL != "" {
			fmt.Println("Remote:", status.RemoteURL)
		}
		if status.Clean {
			fmt.Println("Working tree: clean")
		} else {
			fmt.Println("Working tree: uncommitted changes")
		}
		fmt.Printf("Database:  %d entities\n", status.DB.Total())
		fmt.Printf("Snapshot:  %d entities\n", status.Files.Total())
		return nil
	},
}

func init() {
	syncInitCmd.Flags().StringVar(&syncRemote, "remote", "", "git remote URL for origin (default: sync_remote from config.yaml)")
	syncExportCmd.Flags().StringVar(&syncMessage, "message", "", "commit message (default: generated)")
	syncExportCmd.Flags().BoolVar(&syncPush, "push", false, "push the commit to origin")
	syncImportCmd.Flags().BoolVar(&syncPull, "pull", false, "pull from origin before importing")

	syncCmd.AddCommand(syncInitCmd)
	syncCmd.AddCommand(syncExportCmd)
	syncCmd.AddCommand(syncImportCmd)
	syncCmd.AddCommand(syncStatusCmd)
}
