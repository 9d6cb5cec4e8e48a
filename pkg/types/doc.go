// Package types defines the satchel entity types, lifecycle statuses,
// sync summaries, configuration, and standard error values shared by the
// storage layer, the sync engine, and the CLI.
package types
