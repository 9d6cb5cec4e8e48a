// SQLite error classification. modernc.org/sqlite does not export typed
// constraint errors, so classification matches on the engine's message text.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/satchel/pkg/types"
)

// isFKViolation reports whether err is a foreign key constraint failure.
// With deferred foreign keys the violation surfaces at COMMIT rather than at
// the statement that caused it.
func isFKViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// isUniqueViolation reports whether err is a uniqueness constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireRow converts a zero-row UPDATE or DELETE into ErrNotFound.
func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, types.ErrNotFound)
	}
	return nil
}
