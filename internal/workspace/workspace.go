// Package workspace holds one open annotation session: the annotation file,
// its frame source, the predictor and the undo history of the frame being
// edited.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mfenderov/framemark/internal/command"
	"github.com/mfenderov/framemark/internal/config"
	"github.com/mfenderov/framemark/internal/source"
	"github.com/mfenderov/framemark/internal/storage"
	"github.com/mfenderov/framemark/internal/tracker"
)

const workingPrefix = ".working-"

var (
	// ErrFrameOutOfRange is returned for frames outside 1..Frames().
	ErrFrameOutOfRange = errors.New("frame out of range")

	// ErrIllegalFilename is returned when saving to a name that is not an
	// annotation file or is reserved for working files.
	ErrIllegalFilename = errors.New("illegal annotation filename")

	// ErrUnknownClass is returned for class names missing from the vocabulary.
	ErrUnknownClass = errors.New("unknown class")
)

// Workspace is an open annotation.
type Workspace struct {
	cfg       config.Config
	store     *storage.Store
	source    source.Source
	predictor tracker.Predictor
	engine    *command.Engine
	history   *command.History

	frame int
	// edited holds objects changed since the current frame was entered.
	edited map[int]bool
}

// New starts an annotation of the video or image sequence at videoPath in a
// fresh working file. The annotation is unsaved until SaveAs.
func New(ctx context.Context, cfg config.Config, videoPath string) (*Workspace, error) {
	abs, err := filepath.Abs(videoPath)
	if err != nil {
		return nil, err
	}
	src, err := source.Open(ctx, abs)
	if err != nil {
		return nil, err
	}

	dir := cfg.Workspace.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace dir: %w", err)
	}
	working := filepath.Join(dir, workingPrefix+uuid.NewString()+storage.Suffix)

	store, err := storage.Create(working, abs)
	if err != nil {
		return nil, err
	}

	w, err := newWorkspace(cfg, store, src, 1)
	if err != nil {
		store.Close()
		os.Remove(working)
		return nil, err
	}
	log.Debug("started annotation", "source", abs, "frames", src.Len(), "file", working)
	return w, nil
}

// Open loads the annotation file at path together with its frame source.
// If the source has moved, the source.ErrSourceNotFound error is returned
// and storage.UpdateSource can point the file at the new location.
func Open(ctx context.Context, cfg config.Config, path string) (*Workspace, error) {
	store, err := storage.Load(path)
	if err != nil {
		return nil, err
	}

	sess, err := store.Session()
	if err != nil {
		store.Close()
		return nil, err
	}

	src, err := source.Open(ctx, sess.Source)
	if err != nil {
		store.Close()
		return nil, err
	}

	w, err := newWorkspace(cfg, store, src, sess.CurrentFrame)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Debug("opened annotation", "file", path, "source", sess.Source, "frame", w.frame)
	return w, nil
}

func newWorkspace(cfg config.Config, store *storage.Store, src source.Source, frame int) (*Workspace, error) {
	if src.Len() == 0 {
		return nil, fmt.Errorf("%s has no frames: %w", src.Path(), source.ErrFrameRead)
	}

	w := &Workspace{
		cfg:    cfg,
		source: src,
		edited: make(map[int]bool),
	}
	if err := w.bind(store); err != nil {
		return nil, err
	}

	if frame < 1 {
		frame = 1
	}
	if frame > src.Len() {
		frame = src.Len()
	}
	w.frame = frame
	return w, nil
}

// bind points the predictor, the engine and a fresh history at store.
func (w *Workspace) bind(store *storage.Store) error {
	predictor, err := tracker.New(w.cfg.Tracker.Kind, store)
	if err != nil {
		return err
	}
	w.store = store
	w.predictor = predictor
	w.engine = command.NewEngine(store, predictor, command.WithFrameLimit(w.source.Len()))
	w.history = command.NewHistory(w.engine, w.cfg.History.Depth)
	return nil
}

// Close closes the annotation file. An unsaved working file is kept on disk.
func (w *Workspace) Close() error {
	return w.store.Close()
}

// Path returns the file the annotation is stored in.
func (w *Workspace) Path() string { return w.store.Path() }

// IsSaved reports whether the annotation lives in a named file rather than
// a working file.
func (w *Workspace) IsSaved() bool {
	return !strings.HasPrefix(filepath.Base(w.store.Path()), workingPrefix)
}

// SaveAs stores the annotation at path, which must end in .atc, and
// continues working on that file. The undo history does not survive a save.
func (w *Workspace) SaveAs(path string) error {
	if filepath.Ext(path) != storage.Suffix {
		return fmt.Errorf("%s: expected %s suffix: %w", path, storage.Suffix, ErrIllegalFilename)
	}
	if strings.HasPrefix(filepath.Base(path), workingPrefix) {
		return fmt.Errorf("%s: name is reserved for working files: %w", path, ErrIllegalFilename)
	}

	dst, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	cur, err := filepath.Abs(w.store.Path())
	if err != nil {
		return err
	}
	if dst == cur {
		// Every edit is already committed.
		return nil
	}

	if err := w.store.SaveAs(dst); err != nil {
		return err
	}
	saved, err := storage.Load(dst)
	if err != nil {
		return fmt.Errorf("failed to reopen saved annotation: %w", err)
	}

	wasWorking := !w.IsSaved()
	old := w.store
	if err := w.bind(saved); err != nil {
		saved.Close()
		return err
	}
	if err := old.Close(); err != nil {
		log.Warn("failed to close previous annotation file", "file", cur, "err", err)
	}
	if wasWorking {
		if err := os.Remove(cur); err != nil {
			log.Warn("failed to remove working file", "file", cur, "err", err)
		}
	}
	log.Debug("saved annotation", "file", dst)
	return nil
}

// Frame returns the image of the current frame.
func (w *Workspace) Frame(ctx context.Context) (image.Image, error) {
	return w.source.Read(ctx, w.frame)
}

// CurrentFrame returns the frame being edited.
func (w *Workspace) CurrentFrame() int { return w.frame }

// Frames returns the number of frames in the source.
func (w *Workspace) Frames() int { return w.source.Len() }

// Source returns the frame source.
func (w *Workspace) Source() source.Source { return w.source }

// Store returns the annotation store.
func (w *Workspace) Store() *storage.Store { return w.store }

// Info summarises the session.
type Info struct {
	Path     string        `json:"path" yaml:"path"`
	Source   string        `json:"source" yaml:"source"`
	Saved    bool          `json:"saved" yaml:"saved"`
	Frame    int           `json:"frame" yaml:"frame"`
	Frames   int           `json:"frames" yaml:"frames"`
	CanUndo  bool          `json:"can_undo" yaml:"can_undo"`
	CanRedo  bool          `json:"can_redo" yaml:"can_redo"`
	Classes  []string      `json:"classes" yaml:"classes"`
	Stats    storage.Stats `json:"stats" yaml:"stats"`
	MaxObjID int           `json:"max_object_id" yaml:"max_object_id"`
}

// Info returns a summary of the session.
func (w *Workspace) Info() (*Info, error) {
	stats, err := w.store.Stats()
	if err != nil {
		return nil, err
	}
	classes, err := w.store.Classes()
	if err != nil {
		return nil, err
	}
	maxID, err := w.store.MaxObjectID()
	if err != nil {
		return nil, err
	}
	return &Info{
		Path:     w.store.Path(),
		Source:   w.source.Path(),
		Saved:    w.IsSaved(),
		Frame:    w.frame,
		Frames:   w.source.Len(),
		CanUndo:  w.history.CanUndo(),
		CanRedo:  w.history.CanRedo(),
		Classes:  classes,
		Stats:    *stats,
		MaxObjID: maxID,
	}, nil
}
