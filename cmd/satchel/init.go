// Init command creates the data directory and database schema.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the satchel data directory and database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if flagJSON {
			return printJSON(map[string]string{"data_dir": store.DataDir()})
		}
		fmt.Println("Initialized satchel in", store.DataDir())
		return nil
	},
}
