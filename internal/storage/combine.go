package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Combine merges object fromID into toID: every record of fromID is
// relabelled with toID and takes toID's class. fromID no longer exists
// afterwards. The two objects must not share a frame.
func (s *Store) Combine(fromID, toID int) error {
	if fromID <= 0 || toID <= 0 {
		return ErrInvalidID
	}

	return s.withTx(context.Background(), func(tx *sqlx.Tx) error {
		var fromCount int
		if err := tx.Get(&fromCount, "SELECT COUNT(*) FROM frames WHERE object = ?", fromID); err != nil {
			return fmt.Errorf("failed to read object %d: %w", fromID, err)
		}
		if fromCount == 0 {
			return fmt.Errorf("object %d: %w", fromID, ErrNotFound)
		}

		var class string
		err := tx.Get(&class,
			"SELECT COALESCE(class, '') FROM frames WHERE object = ? ORDER BY frame LIMIT 1", toID)
		if noRows(err) {
			return fmt.Errorf("object %d: %w", toID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read object %d: %w", toID, err)
		}

		var shared []int
		if err := tx.Select(&shared, `
			SELECT a.frame FROM frames a
			JOIN frames b ON a.frame = b.frame
			WHERE a.object = ? AND b.object = ?
			ORDER BY a.frame
		`, fromID, toID); err != nil {
			return fmt.Errorf("failed to compare objects %d and %d: %w", fromID, toID, err)
		}
		if len(shared) > 0 {
			return fmt.Errorf("objects %d and %d both appear on frame %d: %w",
				fromID, toID, shared[0], ErrConflict)
		}

		if _, err := tx.Exec(
			"UPDATE frames SET object = ?, class = ? WHERE object = ?", toID, class, fromID,
		); err != nil {
			return fmt.Errorf("failed to merge object %d into %d: %w", fromID, toID, err)
		}
		return nil
	})
}
