package workspace

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfenderov/framemark/internal/config"
	"github.com/mfenderov/framemark/internal/cursor"
	"github.com/mfenderov/framemark/internal/source"
	"github.com/mfenderov/framemark/internal/storage"
)

// writeSequence writes n 100x80 frames and returns the first one.
func writeSequence(t *testing.T, dir string, n int) string {
	t.Helper()
	for i := 1; i <= n; i++ {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 100, 80))))
		require.NoError(t, f.Close())
	}
	return filepath.Join(dir, "frame_001.png")
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Workspace.Dir = t.TempDir()
	return cfg
}

func newTestWorkspace(t *testing.T, cfg config.Config, frames int) *Workspace {
	t.Helper()
	first := writeSequence(t, t.TempDir(), frames)
	w, err := New(context.Background(), cfg, first)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.AddClass("car"))
	require.NoError(t, w.AddClass("person"))
	return w
}

func square(x, y int) storage.Contour {
	return storage.Contour{x, y, x + 10, y, x + 10, y + 10, x, y + 10}
}

func TestNew_UsesWorkingFile(t *testing.T) {
	cfg := testConfig(t)
	w := newTestWorkspace(t, cfg, 3)

	assert.False(t, w.IsSaved())
	assert.Equal(t, cfg.Workspace.Dir, filepath.Dir(w.Path()))
	assert.Equal(t, 1, w.CurrentFrame())
	assert.Equal(t, 3, w.Frames())

	img, err := w.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 80), img.Bounds())
}

func TestNew_MissingSource(t *testing.T) {
	_, err := New(context.Background(), testConfig(t), filepath.Join(t.TempDir(), "frame_001.png"))
	assert.ErrorIs(t, err, source.ErrSourceNotFound)
}

func TestSaveAs(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)
	working := w.Path()

	id, err := w.Draw("car", square(10, 10))
	require.NoError(t, err)

	dir := t.TempDir()
	assert.ErrorIs(t, w.SaveAs(filepath.Join(dir, "street.txt")), ErrIllegalFilename)
	assert.ErrorIs(t, w.SaveAs(filepath.Join(dir, ".working-mine.atc")), ErrIllegalFilename)

	target := filepath.Join(dir, "street.atc")
	require.NoError(t, w.SaveAs(target))
	assert.True(t, w.IsSaved())
	assert.Equal(t, target, w.Path())
	_, err = os.Stat(working)
	assert.True(t, os.IsNotExist(err), "working file is removed after the first save")

	// Edits keep landing in the saved file.
	require.NoError(t, w.Move(id, 5, 0))
	require.NoError(t, w.SaveAs(target))

	reopened, err := Open(context.Background(), testConfig(t), target)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, square(15, 10), records[0].Contour)
}

func TestOpen_MovedSource(t *testing.T) {
	dir := t.TempDir()
	first := writeSequence(t, dir, 2)
	cfg := testConfig(t)

	w, err := New(context.Background(), cfg, first)
	require.NoError(t, err)
	target := filepath.Join(t.TempDir(), "moved.atc")
	require.NoError(t, w.SaveAs(target))
	require.NoError(t, w.Close())

	moved := t.TempDir()
	newFirst := writeSequence(t, moved, 2)
	require.NoError(t, os.RemoveAll(dir))

	_, err = Open(context.Background(), cfg, target)
	require.ErrorIs(t, err, source.ErrSourceNotFound)

	require.NoError(t, storage.UpdateSource(target, newFirst))
	reopened, err := Open(context.Background(), cfg, target)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, newFirst, reopened.Source().Path())
}

func TestSetFrame(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 4)

	assert.ErrorIs(t, w.SetFrame(0), ErrFrameOutOfRange)
	assert.ErrorIs(t, w.SetFrame(5), ErrFrameOutOfRange)
	assert.ErrorIs(t, w.Prev(), ErrFrameOutOfRange)

	_, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	assert.True(t, w.CanUndo())

	require.NoError(t, w.Next())
	assert.Equal(t, 2, w.CurrentFrame())
	assert.False(t, w.CanUndo(), "changing frame clears the history")

	sess, err := w.Store().Session()
	require.NoError(t, err)
	assert.Equal(t, 2, sess.CurrentFrame)
}

func TestDraw(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)

	_, err := w.Draw("boat", square(0, 0))
	assert.ErrorIs(t, err, ErrUnknownClass)

	first, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	second, err := w.Draw(" person ", square(20, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	require.NoError(t, w.Delete(second))
	third, err := w.Draw("car", square(40, 40))
	require.NoError(t, err)
	assert.Equal(t, 3, third, "deleted ids are not reused")

	ok, err := w.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = w.Redo()
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := w.Store().Lookup(2, third)
	require.NoError(t, err)
	assert.False(t, rec.Final)
}

func TestMove_ClipsToFrame(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 2)

	id, err := w.Draw("car", square(80, 60))
	require.NoError(t, err)
	require.NoError(t, w.Move(id, 50, 50))

	rec, err := w.Store().Lookup(1, id)
	require.NoError(t, err)
	assert.Equal(t, storage.Contour{99, 79, 99, 79, 99, 79, 99, 79}, rec.Contour)
}

func TestModify(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 2)

	id, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Modify(id, "boat", square(5, 5)), ErrUnknownClass)
	require.NoError(t, w.Modify(id, "person", square(5, 5)))

	rec, err := w.Store().Lookup(1, id)
	require.NoError(t, err)
	assert.Equal(t, "person", rec.Class)
	assert.Equal(t, square(5, 5), rec.Contour)
}

func TestCombine_ClearsHistory(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)

	a, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	b, err := w.Draw("person", square(0, 0))
	require.NoError(t, err)
	require.True(t, w.CanUndo())

	// a covers frames 1-2, b covers frame 3.
	require.NoError(t, w.Combine(b, a))
	assert.False(t, w.CanUndo())

	frames, err := w.Store().FramesOf(a)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, frames)

	err = w.Combine(a, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTrack_SkipsEditedAndExisting(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 5)
	store := w.Store()

	// Objects confirmed on frame 2 before this visit.
	require.NoError(t, store.Add(2, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(2, 2, "car", square(20, 0), true))
	require.NoError(t, store.Add(2, 3, "car", square(40, 0), true))
	require.NoError(t, store.Add(3, 3, "car", square(45, 0), true))
	require.NoError(t, w.SetFrame(2))

	// Editing object 2 writes its own forecast and excludes it from tracking.
	require.NoError(t, w.Modify(2, "", square(25, 0)))
	require.NoError(t, store.RemoveAt(2, 3))

	written, err := w.Track()
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	rec, err := store.Lookup(3, 1)
	require.NoError(t, err)
	assert.False(t, rec.Final)
	assert.Equal(t, square(0, 0), rec.Contour)

	_, err = store.Lookup(3, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound, "edited objects are not tracked")

	rec, err = store.Lookup(3, 3)
	require.NoError(t, err)
	assert.True(t, rec.Final, "existing records are kept")
}

func TestNext_Propagates(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tracker.Propagate = true
	w := newTestWorkspace(t, cfg, 4)

	require.NoError(t, w.Store().Add(1, 7, "car", square(0, 0), true))
	require.NoError(t, w.Next())

	rec, err := w.Store().Lookup(2, 7)
	require.NoError(t, err)
	assert.False(t, rec.Final)

	// Jumping does not propagate.
	require.NoError(t, w.SetFrame(4))
	_, err = w.Store().Lookup(3, 7)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFinalize(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)

	id, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	require.NoError(t, w.Next())

	assert.ErrorIs(t, w.FinalizeObject(42), storage.ErrNotFound)
	require.NoError(t, w.FinalizeObject(id))

	rec, err := w.Store().Lookup(2, id)
	require.NoError(t, err)
	assert.True(t, rec.Final)
}

func TestChangeClass(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)

	id, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)

	assert.ErrorIs(t, w.ChangeClass(id, "boat"), ErrUnknownClass)
	assert.ErrorIs(t, w.ChangeClass(77, "person"), storage.ErrNotFound)
	require.NoError(t, w.ChangeClass(id, "person"))

	records, err := w.Store().AnnotationsOf(id)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, "person", r.Class)
	}
}

func TestChangeClass_ClearsHistory(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)

	id, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	require.NoError(t, w.SetFrame(2))
	require.NoError(t, w.Modify(id, "", square(5, 5)))
	require.True(t, w.CanUndo())

	require.NoError(t, w.ChangeClass(id, "person"))
	assert.False(t, w.CanUndo())

	ok, err := w.Undo()
	require.NoError(t, err)
	assert.False(t, ok, "nothing left to undo after a relabel")

	records, err := w.Store().AnnotationsOf(id)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, "person", r.Class, "frame %d", r.Frame)
	}
}

func TestFind(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 4)

	id, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)
	_, err = w.Draw("person", square(30, 30))
	require.NoError(t, err)
	_, err = w.Draw("car", square(60, 60))
	require.NoError(t, err)

	c, err := w.FindObject(id)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	rec, pos, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, 1, rec.Frame)

	_, err = w.FindObject(99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cars, err := w.FindClass("car")
	require.NoError(t, err)
	assert.Equal(t, 2, cars.Len())
	_, _, err = cars.Next()
	require.NoError(t, err)
	_, _, err = cars.Next()
	require.NoError(t, err)
	_, _, err = cars.Next()
	assert.ErrorIs(t, err, cursor.ErrEndOfSequence)
}

func TestInfo(t *testing.T) {
	w := newTestWorkspace(t, testConfig(t), 3)
	_, err := w.Draw("car", square(0, 0))
	require.NoError(t, err)

	info, err := w.Info()
	require.NoError(t, err)
	assert.False(t, info.Saved)
	assert.Equal(t, 3, info.Frames)
	assert.Equal(t, []string{"car", "person"}, info.Classes)
	assert.Equal(t, 2, info.Stats.Records)
	assert.Equal(t, 1, info.MaxObjID)
	assert.True(t, info.CanUndo)
}
