package storage

import "errors"

var (
	// ErrNotFound is returned when an object, frame, session or file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation would break a uniqueness or
	// co-occurrence invariant, e.g. merging two objects that share a frame.
	ErrConflict = errors.New("conflict")

	// ErrConstraint is returned when a record is inserted for a (frame, object)
	// pair that already holds one. Callers replacing a record remove it first.
	ErrConstraint = errors.New("duplicate record")

	// ErrCorruptStore is returned when an annotation file fails structural validation.
	ErrCorruptStore = errors.New("corrupt annotation file")

	// ErrInvalidID is returned for non-positive object ids or frame numbers.
	ErrInvalidID = errors.New("object ids and frames must be positive integers")
)
