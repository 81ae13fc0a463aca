package tracker

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"

	"github.com/mfenderov/framemark/internal/storage"
)

const (
	// maxGap is the widest run of unannotated frames the filter coasts
	// through before it restarts from the next observation.
	maxGap = 5
	// maxObservations bounds how much history feeds one prediction.
	maxObservations = 30
)

// Kalman predicts motion with a constant-velocity Kalman filter run over the
// centroids of an object's confirmed records. The whole contour is shifted by
// the predicted centroid displacement; its shape is kept.
type Kalman struct {
	history History

	dt       float64
	stdDevA  float64
	stdDevMx float64
	stdDevMy float64
}

// NewKalman creates a Kalman predictor reading object history from h.
func NewKalman(h History) *Kalman {
	return &Kalman{
		history:  h,
		dt:       1.0,
		stdDevA:  2.0,
		stdDevMx: 0.1,
		stdDevMy: 0.1,
	}
}

type observation struct {
	frame int
	x, y  float64
}

// Predict implements Predictor.
func (k *Kalman) Predict(contour storage.Contour, frame, objectID int) (storage.Contour, error) {
	if len(contour) < 2 {
		return contour.Clone(), nil
	}

	records, err := k.history.AnnotationsOf(objectID)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read history of object %d", objectID)
	}

	track := make([]observation, 0, len(records)+1)
	for _, r := range records {
		if !r.Final || r.Frame >= frame || len(r.Contour) < 2 {
			continue
		}
		x, y := r.Contour.Centroid()
		track = append(track, observation{frame: r.Frame, x: x, y: y})
	}
	if len(track) > maxObservations-1 {
		track = track[len(track)-(maxObservations-1):]
	}
	cx, cy := contour.Centroid()
	track = append(track, observation{frame: frame, x: cx, y: cy})

	px, py, err := k.run(track)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't predict object %d on frame %d", objectID, frame+1)
	}

	dx := int(math.Round(px - cx))
	dy := int(math.Round(py - cy))
	return contour.Translate(dx, dy), nil
}

// run filters the track and returns the predicted centroid one frame past
// its last observation.
func (k *Kalman) run(track []observation) (float64, float64, error) {
	// Control inputs stay zero: the filter only extrapolates what it observed.
	newFilter := func(o observation) *kalman_filter.Kalman2D {
		return kalman_filter.NewKalman2D(k.dt, 0, 0, k.stdDevA, k.stdDevMx, k.stdDevMy, kalman_filter.WithState2D(o.x, o.y))
	}

	kf := newFilter(track[0])
	for i := 1; i < len(track); i++ {
		gap := track[i].frame - track[i-1].frame
		if gap > maxGap {
			kf = newFilter(track[i])
			continue
		}
		for step := 0; step < gap; step++ {
			kf.Predict()
		}
		if err := kf.Update(track[i].x, track[i].y); err != nil {
			return 0, 0, errors.Wrap(err, "Can't update object tracker")
		}
	}

	kf.Predict()
	x, y := kf.GetState()
	return x, y, nil
}
