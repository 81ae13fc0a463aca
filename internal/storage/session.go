package storage

import (
	"fmt"
)

// Session is the persisted viewing state of an annotation: which video it
// belongs to and which frame was last shown.
type Session struct {
	Source       string `db:"video_file" json:"source" yaml:"source"`
	CurrentFrame int    `db:"current_frame" json:"current_frame" yaml:"current_frame"`
}

// Session returns the session row.
func (s *Store) Session() (*Session, error) {
	var sess Session
	err := s.db.Get(&sess, `
		SELECT COALESCE(video_file, '') AS video_file, COALESCE(current_frame, 1) AS current_frame
		FROM session LIMIT 1
	`)
	if noRows(err) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return &sess, nil
}

// SetCurrentFrame records the frame being viewed.
func (s *Store) SetCurrentFrame(frame int) error {
	if frame <= 0 {
		return ErrInvalidID
	}
	if _, err := s.db.Exec("UPDATE session SET current_frame = ?", frame); err != nil {
		return fmt.Errorf("failed to set current frame: %w", err)
	}
	return nil
}

// SetSource points the annotation at a different video or image sequence.
func (s *Store) SetSource(source string) error {
	if _, err := s.db.Exec("UPDATE session SET video_file = ?", source); err != nil {
		return fmt.Errorf("failed to set source: %w", err)
	}
	return nil
}

// UpdateSource rewrites the source of the annotation file at path without
// opening its video, for annotations whose video has moved.
func UpdateSource(path, source string) error {
	store, err := Load(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SetSource(source)
}
