package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upUniqueFrameObject, downUniqueFrameObject)
}

func upUniqueFrameObject(ctx context.Context, tx *sql.Tx) error {
	// Files written by earlier versions have no constraint; Load rejects
	// duplicates before migrating, so the index always builds.
	_, err := tx.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_frames_frame_object ON frames(frame, object)
	`)
	return err
}

func downUniqueFrameObject(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_frames_frame_object`)
	return err
}
