package command

import (
	"errors"
	"fmt"
	"image"

	"github.com/mfenderov/framemark/internal/storage"
)

// Store is the part of the record store the engine edits.
type Store interface {
	Add(frame, objectID int, class string, contour storage.Contour, final bool) error
	RemoveAt(objectID, frame int) error
	Lookup(frame, objectID int) (*storage.Record, error)
}

// Predictor forecasts an object's contour on the following frame.
type Predictor interface {
	Predict(contour storage.Contour, frame, objectID int) (storage.Contour, error)
}

// Engine builds commands against a store and knows how to apply and invert
// them. It does not own the store.
type Engine struct {
	store     Store
	predictor Predictor
	lastFrame int
}

// Option configures an Engine.
type Option func(*Engine)

// WithFrameLimit stops forecasts from being written past frame n.
func WithFrameLimit(n int) Option {
	return func(e *Engine) {
		e.lastFrame = n
	}
}

// NewEngine returns an engine editing store and forecasting with predictor.
func NewEngine(store Store, predictor Predictor, opts ...Option) *Engine {
	e := &Engine{store: store, predictor: predictor}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add builds a command that creates object id on frame with a confirmed
// contour and a forecast on the next frame.
func (e *Engine) Add(frame, id int, class string, contour storage.Contour) (*Command, error) {
	if frame <= 0 || id <= 0 {
		return nil, storage.ErrInvalidID
	}
	if err := validContour(contour); err != nil {
		return nil, err
	}

	existing, err := e.lookup(frame, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("object %d already exists on frame %d: %w", id, frame, storage.ErrConflict)
	}

	successor, err := e.lookup(frame+1, id)
	if err != nil {
		return nil, err
	}

	return &Command{
		Kind:      KindAdd,
		Frame:     frame,
		ObjectID:  id,
		After:     &storage.Record{Frame: frame, ObjectID: id, Class: class, Contour: contour.Clone(), Final: true},
		Successor: successor,
	}, nil
}

// Delete builds a command that removes object id from frame.
func (e *Engine) Delete(frame, id int) (*Command, error) {
	before, successor, err := e.capture(frame, id)
	if err != nil {
		return nil, err
	}
	return &Command{
		Kind:      KindDelete,
		Frame:     frame,
		ObjectID:  id,
		Before:    before,
		Successor: successor,
	}, nil
}

// Modify builds a command that replaces the contour of object id on frame.
// An empty class keeps the current one.
func (e *Engine) Modify(frame, id int, class string, contour storage.Contour) (*Command, error) {
	return e.replace(KindModify, frame, id, class, contour)
}

// Move is Modify for a contour obtained by dragging the existing one.
func (e *Engine) Move(frame, id int, class string, contour storage.Contour) (*Command, error) {
	return e.replace(KindMove, frame, id, class, contour)
}

// MoveBy builds a Move that shifts the current contour by (dx, dy), clipped
// to bounds when bounds is not empty.
func (e *Engine) MoveBy(frame, id, dx, dy int, bounds image.Rectangle) (*Command, error) {
	before, err := e.store.Lookup(frame, id)
	if err != nil {
		return nil, err
	}
	return e.Move(frame, id, before.Class, before.Contour.Translate(dx, dy).Clip(bounds))
}

func (e *Engine) replace(kind Kind, frame, id int, class string, contour storage.Contour) (*Command, error) {
	if err := validContour(contour); err != nil {
		return nil, err
	}
	before, successor, err := e.capture(frame, id)
	if err != nil {
		return nil, err
	}
	if class == "" {
		class = before.Class
	}
	return &Command{
		Kind:      kind,
		Frame:     frame,
		ObjectID:  id,
		Before:    before,
		After:     &storage.Record{Frame: frame, ObjectID: id, Class: class, Contour: contour.Clone(), Final: true},
		Successor: successor,
	}, nil
}

// capture reads the record being edited, which must exist, and its successor.
func (e *Engine) capture(frame, id int) (before, successor *storage.Record, err error) {
	if frame <= 0 || id <= 0 {
		return nil, nil, storage.ErrInvalidID
	}
	before, err = e.store.Lookup(frame, id)
	if err != nil {
		return nil, nil, err
	}
	successor, err = e.lookup(frame+1, id)
	if err != nil {
		return nil, nil, err
	}
	return before, successor, nil
}

// lookup is Lookup with a missing record reported as nil.
func (e *Engine) lookup(frame, id int) (*storage.Record, error) {
	r, err := e.store.Lookup(frame, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return r, err
}

// Apply performs the command.
func (e *Engine) Apply(cmd *Command) error {
	switch cmd.Kind {
	case KindAdd, KindModify, KindMove:
		if err := e.store.RemoveAt(cmd.ObjectID, cmd.Frame); err != nil {
			return err
		}
		a := cmd.After
		if err := e.store.Add(a.Frame, a.ObjectID, a.Class, a.Contour, true); err != nil {
			return err
		}
		return e.propagate(a)

	case KindDelete:
		if err := e.store.RemoveAt(cmd.ObjectID, cmd.Frame); err != nil {
			return err
		}
		next, err := e.lookup(cmd.Frame+1, cmd.ObjectID)
		if err != nil {
			return err
		}
		if next != nil && !next.Final {
			return e.store.RemoveAt(cmd.ObjectID, cmd.Frame+1)
		}
		return nil

	default:
		return fmt.Errorf("unknown command kind %v", cmd.Kind)
	}
}

// Invert undoes the command, restoring the record at Frame and the successor
// at Frame+1 exactly as they were captured. The predictor is not re-run: a
// Delete undone where no successor existed leaves Frame+1 empty, and the
// restored record keeps its captured final flag. A successor that was final
// is never touched. Each step removes before it inserts, so Invert also cleans
// up after an Apply that stopped part-way.
func (e *Engine) Invert(cmd *Command) error {
	switch cmd.Kind {
	case KindAdd, KindDelete, KindModify, KindMove:
	default:
		return fmt.Errorf("unknown command kind %v", cmd.Kind)
	}

	if err := e.store.RemoveAt(cmd.ObjectID, cmd.Frame); err != nil {
		return err
	}
	if b := cmd.Before; b != nil {
		if err := e.store.Add(b.Frame, b.ObjectID, b.Class, b.Contour, b.Final); err != nil {
			return err
		}
	}

	s := cmd.Successor
	if s != nil && s.Final {
		return nil
	}
	if err := e.store.RemoveAt(cmd.ObjectID, cmd.Frame+1); err != nil {
		return err
	}
	if s != nil {
		return e.store.Add(s.Frame, s.ObjectID, s.Class, s.Contour, false)
	}
	return nil
}

// propagate replaces the forecast after r unless the user already confirmed
// the next frame.
func (e *Engine) propagate(r *storage.Record) error {
	next := r.Frame + 1
	current, err := e.lookup(next, r.ObjectID)
	if err != nil {
		return err
	}
	if current != nil && current.Final {
		return nil
	}
	if current != nil {
		if err := e.store.RemoveAt(r.ObjectID, next); err != nil {
			return err
		}
	}
	if e.lastFrame > 0 && next > e.lastFrame {
		return nil
	}

	forecast, err := e.predictor.Predict(r.Contour, r.Frame, r.ObjectID)
	if err != nil {
		return fmt.Errorf("failed to predict object %d on frame %d: %w", r.ObjectID, next, err)
	}
	return e.store.Add(next, r.ObjectID, r.Class, forecast, false)
}

// Forecast writes a forecast on frame+1 for the record of object id on
// frame, unless frame+1 already holds a record of that object or lies past
// the frame limit. It reports whether a forecast was written.
func (e *Engine) Forecast(frame, id int) (bool, error) {
	r, err := e.store.Lookup(frame, id)
	if err != nil {
		return false, err
	}
	next, err := e.lookup(frame+1, id)
	if err != nil {
		return false, err
	}
	if next != nil || (e.lastFrame > 0 && frame+1 > e.lastFrame) {
		return false, nil
	}
	forecast, err := e.predictor.Predict(r.Contour, frame, id)
	if err != nil {
		return false, fmt.Errorf("failed to predict object %d on frame %d: %w", id, frame+1, err)
	}
	if err := e.store.Add(frame+1, id, r.Class, forecast, false); err != nil {
		return false, err
	}
	return true, nil
}
