// Package main provides the satchel CLI, a local-first backend for
// projects, tasks, notes, and skills with git-based synchronization.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error categories to shell exit codes: 1 for user errors,
// 2 for system errors.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrAlreadyExists),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidStatus),
		errors.Is(err, types.ErrInvalidType),
		errors.Is(err, types.ErrConstraint):
		return exitUserError
	default:
		return exitSysError
	}
}
