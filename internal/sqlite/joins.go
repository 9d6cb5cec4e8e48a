// Join-table reconciliation. Each M:N relationship has one owning side
// whose ID list is authoritative: writing that entity replaces its join rows
// wholesale. The other side only reads the join table at hydration time.
package sqlite

import "fmt"

// replaceJoin deletes all join rows owned by ownID and reinserts one row per
// linked ID. Duplicate IDs in the list collapse via INSERT OR IGNORE.
func replaceJoin(q querier, table, ownCol, linkCol, ownID string, linkIDs []string) error {
	if _, err := q.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, ownCol), ownID,
	); err != nil {
		return fmt.Errorf("clearing %s rows: %w", table, err)
	}
	for _, linkID := range linkIDs {
		if _, err := q.Exec(
			fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)", table, ownCol, linkCol),
			ownID, linkID,
		); err != nil {
			return fmt.Errorf("inserting %s row: %w", table, err)
		}
	}
	return nil
}
