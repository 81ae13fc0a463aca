package storage

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyClass is returned when a class name is blank.
var ErrEmptyClass = errors.New("class name must not be empty")

// NormalizeClass trims a class name and brings it into Unicode NFC so that
// names that render the same compare equal.
func NormalizeClass(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// AddClass adds a name to the class vocabulary. Adding a known name is a no-op.
func (s *Store) AddClass(name string) error {
	name = NormalizeClass(name)
	if name == "" {
		return ErrEmptyClass
	}

	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO classes (class_name) VALUES (?)", name,
	); err != nil {
		return fmt.Errorf("failed to add class %q: %w", name, err)
	}
	return nil
}

// Classes returns the class vocabulary in insertion order.
func (s *Store) Classes() ([]string, error) {
	classes := []string{}
	if err := s.db.Select(&classes,
		"SELECT class_name FROM classes WHERE class_name IS NOT NULL ORDER BY rowid",
	); err != nil {
		return nil, fmt.Errorf("failed to read classes: %w", err)
	}
	return classes, nil
}

// HasClass reports whether name is in the vocabulary.
func (s *Store) HasClass(name string) (bool, error) {
	var n int
	if err := s.db.Get(&n,
		"SELECT COUNT(*) FROM classes WHERE class_name = ?", NormalizeClass(name),
	); err != nil {
		return false, fmt.Errorf("failed to look up class %q: %w", name, err)
	}
	return n > 0, nil
}
