package storage

import (
	"fmt"
)

const recordColumns = "frame, object, COALESCE(class, '') AS class, contour, COALESCE(final, 0) AS final"

// Query narrows Get to one object or one class. Zero values mean no filter;
// ObjectID wins when both are set.
type Query struct {
	ObjectID int
	Class    string
}

// Add inserts a record. A second record for the same (frame, object) is
// rejected with ErrConstraint.
func (s *Store) Add(frame, objectID int, class string, contour Contour, final bool) error {
	if frame <= 0 || objectID <= 0 {
		return ErrInvalidID
	}

	_, err := s.db.Exec(
		"INSERT INTO frames (frame, object, class, contour, final) VALUES (?, ?, ?, ?, ?)",
		frame, objectID, class, contour, final,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("object %d on frame %d: %w", objectID, frame, ErrConstraint)
		}
		return fmt.Errorf("failed to add record: %w", err)
	}
	return nil
}

// Remove deletes every record of an object. Removing an unknown object is a no-op.
func (s *Store) Remove(objectID int) error {
	if _, err := s.db.Exec("DELETE FROM frames WHERE object = ?", objectID); err != nil {
		return fmt.Errorf("failed to remove object %d: %w", objectID, err)
	}
	return nil
}

// RemoveAt deletes an object's record on one frame, if any.
func (s *Store) RemoveAt(objectID, frame int) error {
	if _, err := s.db.Exec(
		"DELETE FROM frames WHERE object = ? AND frame = ?", objectID, frame,
	); err != nil {
		return fmt.Errorf("failed to remove object %d from frame %d: %w", objectID, frame, err)
	}
	return nil
}

// Get returns the records of a frame ordered by object id, optionally narrowed
// by q. It returns an empty slice when nothing matches.
func (s *Store) Get(frame int, q Query) ([]Record, error) {
	records := []Record{}
	var err error

	switch {
	case q.ObjectID != 0:
		err = s.db.Select(&records,
			"SELECT "+recordColumns+" FROM frames WHERE frame = ? AND object = ?",
			frame, q.ObjectID)
	case q.Class != "":
		err = s.db.Select(&records,
			"SELECT "+recordColumns+" FROM frames WHERE frame = ? AND class = ? ORDER BY object",
			frame, q.Class)
	default:
		err = s.db.Select(&records,
			"SELECT "+recordColumns+" FROM frames WHERE frame = ? ORDER BY object",
			frame)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d: %w", frame, err)
	}
	return records, nil
}

// Lookup returns the record of one object on one frame, or ErrNotFound.
func (s *Store) Lookup(frame, objectID int) (*Record, error) {
	var r Record
	err := s.db.Get(&r,
		"SELECT "+recordColumns+" FROM frames WHERE frame = ? AND object = ?",
		frame, objectID)
	if noRows(err) {
		return nil, fmt.Errorf("object %d on frame %d: %w", objectID, frame, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %d on frame %d: %w", objectID, frame, err)
	}
	return &r, nil
}

// AnnotationsOf returns every record of an object ordered by frame.
func (s *Store) AnnotationsOf(objectID int) ([]Record, error) {
	records := []Record{}
	if err := s.db.Select(&records,
		"SELECT "+recordColumns+" FROM frames WHERE object = ? ORDER BY frame",
		objectID); err != nil {
		return nil, fmt.Errorf("failed to read object %d: %w", objectID, err)
	}
	return records, nil
}

// FramesOf returns the frames an object appears on, in order.
func (s *Store) FramesOf(objectID int) ([]int, error) {
	frames := []int{}
	if err := s.db.Select(&frames,
		"SELECT frame FROM frames WHERE object = ? ORDER BY frame",
		objectID); err != nil {
		return nil, fmt.Errorf("failed to read frames of object %d: %w", objectID, err)
	}
	return frames, nil
}

// MaxObjectID returns the highest object id ever inserted, or 0 for an empty
// annotation. Deleting an object does not lower it, so MaxObjectID()+1 is
// always a fresh id.
func (s *Store) MaxObjectID() (int, error) {
	var id int
	if err := s.db.Get(&id, "SELECT COALESCE(MAX(high_water), 0) FROM id_allocator"); err != nil {
		return 0, fmt.Errorf("failed to read max object id: %w", err)
	}
	return id, nil
}

// ChangeClass relabels every record of an object.
func (s *Store) ChangeClass(objectID int, class string) error {
	if _, err := s.db.Exec(
		"UPDATE frames SET class = ? WHERE object = ?", class, objectID,
	); err != nil {
		return fmt.Errorf("failed to change class of object %d: %w", objectID, err)
	}
	return nil
}

// Finalize marks an object's record on a frame as user-confirmed.
func (s *Store) Finalize(objectID, frame int) error {
	if _, err := s.db.Exec(
		"UPDATE frames SET final = 1 WHERE object = ? AND frame = ?", objectID, frame,
	); err != nil {
		return fmt.Errorf("failed to finalize object %d on frame %d: %w", objectID, frame, err)
	}
	return nil
}

// FinalizeFrame marks every record on a frame as user-confirmed.
func (s *Store) FinalizeFrame(frame int) error {
	if _, err := s.db.Exec("UPDATE frames SET final = 1 WHERE frame = ?", frame); err != nil {
		return fmt.Errorf("failed to finalize frame %d: %w", frame, err)
	}
	return nil
}
