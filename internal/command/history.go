package command

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// DefaultDepth is the number of commands kept for undo.
const DefaultDepth = 20

// History is a bounded linear undo/redo stack of executed commands.
type History struct {
	engine *Engine
	depth  int
	done   []*Command
	undone []*Command
}

// NewHistory returns an empty history keeping at most depth commands.
// A non-positive depth selects DefaultDepth.
func NewHistory(engine *Engine, depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{engine: engine, depth: depth}
}

// Execute applies cmd and records it, dropping anything that could have
// been redone. If cmd fails part-way its effects are rolled back and it is
// not recorded.
func (h *History) Execute(cmd *Command) error {
	if err := h.apply(cmd); err != nil {
		return err
	}
	h.undone = nil
	h.push(cmd)
	log.Debug("executed command", "kind", cmd.Kind, "frame", cmd.Frame, "object", cmd.ObjectID, "undo", len(h.done))
	return nil
}

// Undo inverts the most recent command. It reports false when there is
// nothing to undo.
func (h *History) Undo() (bool, error) {
	if len(h.done) == 0 {
		return false, nil
	}
	cmd := h.done[len(h.done)-1]
	if err := h.engine.Invert(cmd); err != nil {
		return false, fmt.Errorf("failed to undo %s: %w", cmd, err)
	}
	h.done = h.done[:len(h.done)-1]
	h.undone = append(h.undone, cmd)
	log.Debug("undid command", "kind", cmd.Kind, "frame", cmd.Frame, "object", cmd.ObjectID)
	return true, nil
}

// Redo re-applies the most recently undone command. It reports false when
// there is nothing to redo.
func (h *History) Redo() (bool, error) {
	if len(h.undone) == 0 {
		return false, nil
	}
	cmd := h.undone[len(h.undone)-1]
	if err := h.apply(cmd); err != nil {
		return false, fmt.Errorf("failed to redo %s: %w", cmd, err)
	}
	h.undone = h.undone[:len(h.undone)-1]
	h.push(cmd)
	log.Debug("redid command", "kind", cmd.Kind, "frame", cmd.Frame, "object", cmd.ObjectID)
	return true, nil
}

// Clear forgets every command.
func (h *History) Clear() {
	h.done = nil
	h.undone = nil
}

// CanUndo reports whether Undo has something to do.
func (h *History) CanUndo() bool { return len(h.done) > 0 }

// CanRedo reports whether Redo has something to do.
func (h *History) CanRedo() bool { return len(h.undone) > 0 }

// Len returns the number of undoable commands.
func (h *History) Len() int { return len(h.done) }

// Depth returns the configured capacity.
func (h *History) Depth() int { return h.depth }

func (h *History) apply(cmd *Command) error {
	err := h.engine.Apply(cmd)
	if err == nil {
		return nil
	}
	if invErr := h.engine.Invert(cmd); invErr != nil {
		log.Error("failed to roll back command", "kind", cmd.Kind, "frame", cmd.Frame, "object", cmd.ObjectID, "err", invErr)
	}
	return err
}

func (h *History) push(cmd *Command) {
	h.done = append(h.done, cmd)
	if len(h.done) > h.depth {
		h.done = append([]*Command(nil), h.done[len(h.done)-h.depth:]...)
	}
}
