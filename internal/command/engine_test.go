package command

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfenderov/framemark/internal/storage"
)

// shiftPredictor forecasts every object 3 pixels to the right.
type shiftPredictor struct {
	calls int
	err   error
}

func (p *shiftPredictor) Predict(contour storage.Contour, _, _ int) (storage.Contour, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return contour.Translate(3, 0), nil
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Create(filepath.Join(t.TempDir(), "test.atc"), "clip.mp4")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *storage.Store, *shiftPredictor) {
	t.Helper()
	store := newTestStore(t)
	predictor := &shiftPredictor{}
	return NewEngine(store, predictor, opts...), store, predictor
}

// snapshot returns every record on the first few frames.
func snapshot(t *testing.T, store *storage.Store) []storage.Record {
	t.Helper()
	var all []storage.Record
	for frame := 1; frame <= 10; frame++ {
		records, err := store.Get(frame, storage.Query{})
		require.NoError(t, err)
		all = append(all, records...)
	}
	return all
}

func square(x, y int) storage.Contour {
	return storage.Contour{x, y, x, y + 10, x + 10, y + 10, x + 10, y}
}

func lookup(t *testing.T, store *storage.Store, frame, id int) *storage.Record {
	t.Helper()
	r, err := store.Lookup(frame, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	require.NoError(t, err)
	return r
}

func TestAdd_WritesRecordAndForecast(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	contour := storage.Contour{0, 0, 0, 10, 10, 10, 10, 0}

	cmd, err := engine.Add(1, 1, "car", contour)
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	got, err := store.Get(1, storage.Query{ObjectID: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Final)
	assert.Equal(t, "car", got[0].Class)

	next, err := store.Get(2, storage.Query{ObjectID: 1})
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.False(t, next[0].Final)
	assert.Equal(t, contour.Translate(3, 0), next[0].Contour)

	require.NoError(t, engine.Invert(cmd))
	assert.Empty(t, snapshot(t, store))
}

func TestAdd_ConstructorFailures(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))

	_, err := engine.Add(1, 1, "car", square(5, 5))
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = engine.Add(1, 2, "car", storage.Contour{0, 0, 1, 1, 2, 2})
	assert.ErrorIs(t, err, ErrInvalidContour)

	_, err = engine.Add(1, 2, "car", storage.Contour{0, 0, 1, 1, 2, 2, 3, 3, 4})
	assert.ErrorIs(t, err, ErrInvalidContour)

	_, err = engine.Add(0, 2, "car", square(0, 0))
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}

func TestDelete_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Delete(3, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = engine.Modify(3, 9, "", square(0, 0))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_RemovesForecastOnly(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(2, 1, "car", square(3, 0), false))

	cmd, err := engine.Delete(1, 1)
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	assert.Nil(t, lookup(t, store, 1, 1))
	assert.Nil(t, lookup(t, store, 2, 1), "non-final forecast goes with its source")
}

func TestDelete_UndoWithoutSuccessorRestoresExactly(t *testing.T) {
	engine, store, predictor := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))
	before := snapshot(t, store)

	cmd, err := engine.Delete(1, 1)
	require.NoError(t, err)
	require.Nil(t, cmd.Successor)
	require.NoError(t, engine.Apply(cmd))
	require.NoError(t, engine.Invert(cmd))

	assert.Equal(t, before, snapshot(t, store))
	assert.Nil(t, lookup(t, store, 2, 1), "undo does not invent a forecast")
	assert.Zero(t, predictor.calls)
}

func TestDelete_FinalSuccessorUntouched(t *testing.T) {
	engine, store, predictor := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(2, 1, "car", square(40, 40), true))
	before := snapshot(t, store)

	cmd, err := engine.Delete(1, 1)
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	assert.Nil(t, lookup(t, store, 1, 1))
	next := lookup(t, store, 2, 1)
	require.NotNil(t, next)
	assert.Equal(t, square(40, 40), next.Contour)
	assert.True(t, next.Final)

	require.NoError(t, engine.Invert(cmd))
	assert.Equal(t, before, snapshot(t, store))
	assert.Zero(t, predictor.calls)
}

func TestModify_RegeneratesNonFinalForecast(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(5, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(6, 1, "car", square(3, 0), false))

	cmd, err := engine.Modify(5, 1, "", square(20, 20))
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	cur := lookup(t, store, 5, 1)
	require.NotNil(t, cur)
	assert.Equal(t, square(20, 20), cur.Contour)
	assert.Equal(t, "car", cur.Class, "empty class keeps the current one")

	next := lookup(t, store, 6, 1)
	require.NotNil(t, next)
	assert.Equal(t, square(23, 20), next.Contour)
	assert.False(t, next.Final)
}

func TestModify_LeavesFinalSuccessor(t *testing.T) {
	engine, store, predictor := newTestEngine(t)
	require.NoError(t, store.Add(5, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(6, 1, "car", square(50, 50), true))

	cmd, err := engine.Modify(5, 1, "truck", square(20, 20))
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	next := lookup(t, store, 6, 1)
	require.NotNil(t, next)
	assert.Equal(t, square(50, 50), next.Contour)
	assert.True(t, next.Final)
	assert.Equal(t, "car", next.Class)
	assert.Zero(t, predictor.calls)
}

func TestModify_CreatesMissingForecast(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(5, 1, "car", square(0, 0), true))

	cmd, err := engine.Modify(5, 1, "", square(10, 0))
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	next := lookup(t, store, 6, 1)
	require.NotNil(t, next)
	assert.False(t, next.Final)

	require.NoError(t, engine.Invert(cmd))
	assert.Nil(t, lookup(t, store, 6, 1))
}

func TestMoveBy_TranslatesAndClips(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))

	cmd, err := engine.MoveBy(1, 1, 95, 5, image.Rect(0, 0, 100, 100))
	require.NoError(t, err)
	assert.Equal(t, KindMove, cmd.Kind)
	assert.Equal(t, storage.Contour{95, 5, 95, 15, 99, 15, 99, 5}, cmd.After.Contour)
	assert.Equal(t, "car", cmd.After.Class)
}

func TestFrameLimit_NoForecastPastLastFrame(t *testing.T) {
	engine, store, predictor := newTestEngine(t, WithFrameLimit(3))

	cmd, err := engine.Add(3, 1, "car", square(0, 0))
	require.NoError(t, err)
	require.NoError(t, engine.Apply(cmd))

	assert.NotNil(t, lookup(t, store, 3, 1))
	assert.Nil(t, lookup(t, store, 4, 1))
	assert.Zero(t, predictor.calls)
}

func TestForecast(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))

	wrote, err := engine.Forecast(1, 1)
	require.NoError(t, err)
	assert.True(t, wrote)
	next := lookup(t, store, 2, 1)
	require.NotNil(t, next)
	assert.False(t, next.Final)

	wrote, err = engine.Forecast(1, 1)
	require.NoError(t, err)
	assert.False(t, wrote, "an existing record on the next frame is kept")
}

func TestRoundTrip(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	// Starting state: a forecast, a confirmed successor, and an edited forecast.
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(2, 1, "car", square(7, 0), false))
	require.NoError(t, store.Add(1, 2, "bike", square(30, 30), true))
	require.NoError(t, store.Add(2, 2, "bike", square(31, 31), true))
	require.NoError(t, store.Add(1, 4, "person", square(60, 0), false))
	before := snapshot(t, store)

	history := NewHistory(engine, DefaultDepth)
	steps := []func() (*Command, error){
		func() (*Command, error) { return engine.Add(1, 3, "car", square(80, 80)) },
		func() (*Command, error) { return engine.Modify(1, 1, "truck", square(5, 5)) },
		func() (*Command, error) { return engine.Move(1, 2, "", square(35, 30)) },
		func() (*Command, error) { return engine.MoveBy(1, 3, -4, 2, image.Rectangle{}) },
		func() (*Command, error) { return engine.Modify(1, 4, "", square(61, 0)) },
		func() (*Command, error) { return engine.Delete(1, 1) },
		func() (*Command, error) { return engine.Delete(1, 2) },
		func() (*Command, error) { return engine.Add(1, 1, "car", square(9, 9)) },
	}
	for i, step := range steps {
		cmd, err := step()
		require.NoError(t, err, "step %d", i)
		require.NoError(t, history.Execute(cmd), "step %d", i)
	}
	after := snapshot(t, store)

	for range steps {
		ok, err := history.Undo()
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, before, snapshot(t, store))

	for range steps {
		ok, err := history.Redo()
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, after, snapshot(t, store))
}

func TestApplyFailureRollsBack(t *testing.T) {
	engine, store, predictor := newTestEngine(t)
	require.NoError(t, store.Add(1, 1, "car", square(0, 0), true))
	require.NoError(t, store.Add(2, 1, "car", square(3, 0), false))
	before := snapshot(t, store)

	cmd, err := engine.Modify(1, 1, "", square(10, 10))
	require.NoError(t, err)

	predictor.err = errors.New("tracker lost the object")
	history := NewHistory(engine, DefaultDepth)

	err = history.Execute(cmd)
	assert.ErrorIs(t, err, predictor.err)
	assert.Equal(t, 0, history.Len())
	assert.Equal(t, before, snapshot(t, store))
}
