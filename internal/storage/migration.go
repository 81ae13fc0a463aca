package storage

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pressly/goose/v3"
)

func (s *Store) provider() (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db.DB, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate runs all pending migrations.
func (s *Store) Migrate() error {
	provider, err := s.provider()
	if err != nil {
		return err
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		log.Debug("applied migration", "version", r.Source.Version, "file", r.Source.Path, "took", r.Duration)
	}
	return nil
}

// GetSchemaVersion returns the current schema version.
func (s *Store) GetSchemaVersion() (int64, error) {
	provider, err := s.provider()
	if err != nil {
		return 0, err
	}
	version, err := provider.GetDBVersion(context.Background())
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
