package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upIDAllocator, downIDAllocator)
}

// upIDAllocator persists the highest object id ever inserted so that ids of
// deleted objects are never handed out again.
func upIDAllocator(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS id_allocator (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			high_water INTEGER NOT NULL
		);

		INSERT OR IGNORE INTO id_allocator (id, high_water)
		SELECT 1, COALESCE(MAX(object), 0) FROM frames;

		DROP TRIGGER IF EXISTS frames_id_high_water;

		CREATE TRIGGER frames_id_high_water AFTER INSERT ON frames BEGIN
			UPDATE id_allocator SET high_water = MAX(high_water, NEW.object) WHERE id = 1;
		END;
	`)
	return err
}

func downIDAllocator(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DROP TRIGGER IF EXISTS frames_id_high_water;
		DROP TABLE IF EXISTS id_allocator;
	`)
	return err
}
