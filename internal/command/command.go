// Package command implements the invertible edits applied to an annotation
// and the bounded undo history that replays them.
package command

import (
	"errors"
	"fmt"

	"github.com/mfenderov/framemark/internal/storage"
)

// ErrInvalidContour is returned for contours with fewer than four points or
// an odd number of coordinates.
var ErrInvalidContour = errors.New("contour needs at least four (x, y) points")

// Kind tags a Command.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindDelete
	KindModify
	KindMove
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindDelete:
		return "delete"
	case KindModify:
		return "modify"
	case KindMove:
		return "move"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is one edit of one object on one frame. Everything needed to undo
// it is captured when the command is built, before it is applied.
type Command struct {
	Kind     Kind
	Frame    int
	ObjectID int

	// Before is the record at Frame prior to the edit; nil for Add.
	Before *storage.Record
	// After is the record the edit writes at Frame; nil for Delete.
	After *storage.Record
	// Successor is the record at Frame+1 prior to the edit, if there was one.
	Successor *storage.Record
}

func (c *Command) String() string {
	return fmt.Sprintf("%s object %d on frame %d", c.Kind, c.ObjectID, c.Frame)
}

func validContour(c storage.Contour) error {
	if !c.Valid() {
		return fmt.Errorf("%d coordinates: %w", len(c), ErrInvalidContour)
	}
	return nil
}
