// Package cursor steps back and forth through a fixed list of search hits.
package cursor

import "errors"

// ErrEndOfSequence is returned when a cursor cannot move further.
var ErrEndOfSequence = errors.New("end of sequence")

// Cursor walks a pre-fetched slice. It starts before the first item, never
// wraps, and stays put when a move fails.
type Cursor[T any] struct {
	items []T
	pos   int
}

// New returns a cursor positioned before items[0].
func New[T any](items []T) *Cursor[T] {
	return &Cursor[T]{items: items}
}

// Next advances and returns the item with its 1-based position.
func (c *Cursor[T]) Next() (T, int, error) {
	var zero T
	if c.pos >= len(c.items) {
		return zero, c.pos, ErrEndOfSequence
	}
	c.pos++
	return c.items[c.pos-1], c.pos, nil
}

// Prev steps back and returns the item with its 1-based position. It fails
// at or before the first item.
func (c *Cursor[T]) Prev() (T, int, error) {
	var zero T
	if c.pos <= 1 {
		return zero, c.pos, ErrEndOfSequence
	}
	c.pos--
	return c.items[c.pos-1], c.pos, nil
}

// Len returns the number of items.
func (c *Cursor[T]) Len() int { return len(c.items) }

// Position returns the 1-based position of the current item, 0 before the first Next.
func (c *Cursor[T]) Position() int { return c.pos }
