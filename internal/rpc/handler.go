// Package rpc exposes an open annotation as JSON-RPC 2.0 methods.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mfenderov/framemark/internal/command"
	"github.com/mfenderov/framemark/internal/cursor"
	"github.com/mfenderov/framemark/internal/source"
	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/workspace"
)

var (
	// ErrUnknownMethod is returned by Call for methods it does not serve.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrNoSearch is returned by search.next and search.prev before a search.
	ErrNoSearch = errors.New("no search in progress")

	errInvalidParams = errors.New("invalid params")
)

// Handler serves one workspace.
type Handler struct {
	ws     *workspace.Workspace
	search *cursor.Cursor[storage.Record]

	// OnSave is called with the new path after annotation.save succeeds.
	OnSave func(path string)
}

// NewHandler returns a handler editing ws.
func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

// Methods returns the method names Call serves.
func (h *Handler) Methods() []string {
	return []string{
		"session.info",
		"frame.set",
		"frame.next",
		"frame.prev",
		"frame.records",
		"frame.finalize",
		"frame.track",
		"object.draw",
		"object.delete",
		"object.modify",
		"object.move",
		"object.class",
		"object.finalize",
		"object.combine",
		"object.frames",
		"class.add",
		"class.list",
		"history.undo",
		"history.redo",
		"search.object",
		"search.class",
		"search.next",
		"search.prev",
		"annotation.save",
	}
}

// Call runs method with its JSON params.
func (h *Handler) Call(method string, params json.RawMessage) (any, error) {
	log.Debug("rpc call", "method", method)

	switch method {
	case "session.info":
		return h.ws.Info()
	case "frame.set":
		var p FrameParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.SetFrame(p.Frame))
	case "frame.next":
		return h.frameAfter(h.ws.Next())
	case "frame.prev":
		return h.frameAfter(h.ws.Prev())
	case "frame.records":
		return h.frame()
	case "frame.finalize":
		if err := h.ws.FinalizeFrame(); err != nil {
			return nil, err
		}
		return h.frame()
	case "frame.track":
		n, err := h.ws.Track()
		if err != nil {
			return nil, err
		}
		return &TrackResult{Forecasts: n}, nil
	case "object.draw":
		return h.draw(params)
	case "object.delete":
		var p ObjectParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.Delete(p.ID))
	case "object.modify":
		var p ModifyParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.Modify(p.ID, p.Class, storage.Contour(p.Contour)))
	case "object.move":
		var p MoveParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.Move(p.ID, p.DX, p.DY))
	case "object.class":
		var p ClassParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.ChangeClass(p.ID, p.Class))
	case "object.finalize":
		var p ObjectParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.FinalizeObject(p.ID))
	case "object.combine":
		var p CombineParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.frameAfter(h.ws.Combine(p.From, p.To))
	case "object.frames":
		var p ObjectParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		frames, err := h.ws.Store().FramesOf(p.ID)
		if err != nil {
			return nil, err
		}
		return &FramesResult{ID: p.ID, Frames: frames}, nil
	case "class.add":
		var p ClassParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		if err := h.ws.AddClass(p.Class); err != nil {
			return nil, err
		}
		return h.classes()
	case "class.list":
		return h.classes()
	case "history.undo":
		return h.history(h.ws.Undo())
	case "history.redo":
		return h.history(h.ws.Redo())
	case "search.object":
		var p ObjectParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.startSearch(h.ws.FindObject(p.ID))
	case "search.class":
		var p ClassParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return h.startSearch(h.ws.FindClass(p.Class))
	case "search.next":
		return h.step((*cursor.Cursor[storage.Record]).Next)
	case "search.prev":
		return h.step((*cursor.Cursor[storage.Record]).Prev)
	case "annotation.save":
		var p SaveParams
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		if err := h.ws.SaveAs(p.Path); err != nil {
			return nil, err
		}
		if h.OnSave != nil {
			h.OnSave(h.ws.Path())
		}
		return &SaveResult{Path: h.ws.Path()}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func decode(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return fmt.Errorf("%w: missing params", errInvalidParams)
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (h *Handler) frame() (*FrameResult, error) {
	records, err := h.ws.Records()
	if err != nil {
		return nil, err
	}
	return &FrameResult{Frame: h.ws.CurrentFrame(), Frames: h.ws.Frames(), Records: records}, nil
}

// frameAfter reports the current frame once a frame change or edit succeeds.
func (h *Handler) frameAfter(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return h.frame()
}

func (h *Handler) draw(params json.RawMessage) (any, error) {
	var p DrawParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	id, err := h.ws.Draw(p.Class, storage.Contour(p.Contour))
	if err != nil {
		return nil, err
	}
	return &ObjectResult{ID: id}, nil
}

func (h *Handler) classes() (*ClassesResult, error) {
	classes, err := h.ws.Classes()
	if err != nil {
		return nil, err
	}
	return &ClassesResult{Classes: classes}, nil
}

func (h *Handler) history(changed bool, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return &HistoryResult{Changed: changed, CanUndo: h.ws.CanUndo(), CanRedo: h.ws.CanRedo()}, nil
}

func (h *Handler) startSearch(c *cursor.Cursor[storage.Record], err error) (any, error) {
	if err != nil {
		return nil, err
	}
	h.search = c
	return h.step((*cursor.Cursor[storage.Record]).Next)
}

func (h *Handler) step(move func(*cursor.Cursor[storage.Record]) (storage.Record, int, error)) (any, error) {
	if h.search == nil {
		return nil, ErrNoSearch
	}
	rec, pos, err := move(h.search)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Record: &rec, Position: pos, Total: h.search.Len()}, nil
}

// ErrorFor maps an error returned by Call onto a JSON-RPC error. The message
// carries the human-readable reason.
func ErrorFor(err error) *Error {
	code := ErrCodeInternal
	switch {
	case errors.Is(err, ErrUnknownMethod):
		code = ErrCodeMethodNotFound
	case errors.Is(err, errInvalidParams),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, storage.ErrEmptyClass),
		errors.Is(err, command.ErrInvalidContour),
		errors.Is(err, workspace.ErrIllegalFilename),
		errors.Is(err, workspace.ErrUnknownClass):
		code = ErrCodeInvalidParams
	case errors.Is(err, storage.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrConstraint):
		code = ErrCodeConflict
	case errors.Is(err, workspace.ErrFrameOutOfRange):
		code = ErrCodeOutOfRange
	case errors.Is(err, cursor.ErrEndOfSequence):
		code = ErrCodeEndOfSequence
	case errors.Is(err, ErrNoSearch):
		code = ErrCodeNoSearch
	case errors.Is(err, source.ErrSourceNotFound), errors.Is(err, source.ErrFrameRead):
		code = ErrCodeSource
	}
	return &Error{Code: code, Message: err.Error()}
}
