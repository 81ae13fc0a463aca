package workspace

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mfenderov/framemark/internal/command"
	"github.com/mfenderov/framemark/internal/storage"
)

// SetFrame moves to frame n and persists it as the session frame. Undo
// history only covers the frame being edited, so it is cleared. With
// tracker.propagate enabled, stepping forward by one frame first runs Track.
func (w *Workspace) SetFrame(n int) error {
	if n < 1 || n > w.source.Len() {
		return fmt.Errorf("frame %d of %d: %w", n, w.source.Len(), ErrFrameOutOfRange)
	}

	if w.cfg.Tracker.Propagate && n == w.frame+1 {
		if _, err := w.Track(); err != nil {
			return err
		}
	}

	if err := w.store.SetCurrentFrame(n); err != nil {
		return err
	}
	w.frame = n
	w.history.Clear()
	w.edited = make(map[int]bool)
	log.Debug("frame changed", "frame", n)
	return nil
}

// Next moves one frame forward.
func (w *Workspace) Next() error { return w.SetFrame(w.frame + 1) }

// Prev moves one frame back.
func (w *Workspace) Prev() error { return w.SetFrame(w.frame - 1) }

// Records returns the records on the current frame.
func (w *Workspace) Records() ([]storage.Record, error) {
	return w.store.Get(w.frame, storage.Query{})
}

// Track forecasts every object on the current frame onto the next frame,
// except objects edited during this frame visit and objects that already
// have a record there. It returns how many forecasts were written.
func (w *Workspace) Track() (int, error) {
	records, err := w.Records()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, r := range records {
		if w.edited[r.ObjectID] {
			continue
		}
		ok, err := w.engine.Forecast(w.frame, r.ObjectID)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	log.Debug("tracked frame", "frame", w.frame, "forecasts", written)
	return written, nil
}

func (w *Workspace) execute(cmd *command.Command, err error) error {
	if err != nil {
		return err
	}
	if err := w.history.Execute(cmd); err != nil {
		return err
	}
	w.edited[cmd.ObjectID] = true
	return nil
}

// Draw adds a new object of class with contour on the current frame and
// returns its id.
func (w *Workspace) Draw(class string, contour storage.Contour) (int, error) {
	class, err := w.knownClass(class)
	if err != nil {
		return 0, err
	}
	maxID, err := w.store.MaxObjectID()
	if err != nil {
		return 0, err
	}
	id := maxID + 1

	if err := w.execute(w.engine.Add(w.frame, id, class, contour)); err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes object id from the current frame.
func (w *Workspace) Delete(id int) error {
	return w.execute(w.engine.Delete(w.frame, id))
}

// Modify replaces the contour of object id on the current frame. An empty
// class keeps the current one.
func (w *Workspace) Modify(id int, class string, contour storage.Contour) error {
	if class != "" {
		var err error
		if class, err = w.knownClass(class); err != nil {
			return err
		}
	}
	return w.execute(w.engine.Modify(w.frame, id, class, contour))
}

// Move shifts object id on the current frame, keeping it inside the frame.
func (w *Workspace) Move(id, dx, dy int) error {
	return w.execute(w.engine.MoveBy(w.frame, id, dx, dy, w.source.Bounds()))
}

// Undo reverts the last edit on the current frame. It reports false when
// there was nothing to undo.
func (w *Workspace) Undo() (bool, error) { return w.history.Undo() }

// Redo re-applies the last undone edit. It reports false when there was
// nothing to redo.
func (w *Workspace) Redo() (bool, error) { return w.history.Redo() }

// CanUndo reports whether Undo has something to revert.
func (w *Workspace) CanUndo() bool { return w.history.CanUndo() }

// CanRedo reports whether Redo has something to re-apply.
func (w *Workspace) CanRedo() bool { return w.history.CanRedo() }

// ChangeClass relabels object id on every frame. It is not undoable and
// clears the undo history, whose commands hold the old class.
func (w *Workspace) ChangeClass(id int, class string) error {
	class, err := w.knownClass(class)
	if err != nil {
		return err
	}
	frames, err := w.store.FramesOf(id)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("object %d: %w", id, storage.ErrNotFound)
	}
	if err := w.store.ChangeClass(id, class); err != nil {
		return err
	}
	w.history.Clear()
	log.Debug("changed class", "object", id, "class", class)
	return nil
}

// FinalizeObject confirms object id on the current frame.
func (w *Workspace) FinalizeObject(id int) error {
	if _, err := w.store.Lookup(w.frame, id); err != nil {
		return err
	}
	return w.store.Finalize(id, w.frame)
}

// FinalizeFrame confirms every record on the current frame.
func (w *Workspace) FinalizeFrame() error {
	return w.store.FinalizeFrame(w.frame)
}

// Combine merges object from into object to. It is committed at once and
// clears the undo history, whose commands may refer to the merged id.
func (w *Workspace) Combine(from, to int) error {
	if err := w.store.Combine(from, to); err != nil {
		return err
	}
	w.history.Clear()
	log.Debug("combined objects", "from", from, "to", to)
	return nil
}

// AddClass adds name to the class vocabulary.
func (w *Workspace) AddClass(name string) error {
	return w.store.AddClass(name)
}

// Classes returns the class vocabulary.
func (w *Workspace) Classes() ([]string, error) {
	return w.store.Classes()
}

func (w *Workspace) knownClass(name string) (string, error) {
	name = storage.NormalizeClass(name)
	ok, err := w.store.HasClass(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownClass)
	}
	return name, nil
}
