// Package tracker forecasts where an annotated object will be on the next
// frame.
package tracker

import (
	"github.com/pkg/errors"

	"github.com/mfenderov/framemark/internal/storage"
)

// ErrUnknownKind is returned by New for an unrecognised predictor name.
var ErrUnknownKind = errors.New("unknown tracker kind")

// Predictor kinds accepted by New.
const (
	KindIdentity = "identity"
	KindKalman   = "kalman"
)

// Predictor forecasts an object's contour on frame+1 from its contour on
// frame. Implementations must not modify the store.
type Predictor interface {
	Predict(contour storage.Contour, frame, objectID int) (storage.Contour, error)
}

// History gives read-only access to an object's earlier records.
type History interface {
	AnnotationsOf(objectID int) ([]storage.Record, error)
}

// New returns the predictor registered under kind. An empty kind selects
// the identity predictor.
func New(kind string, history History) (Predictor, error) {
	switch kind {
	case "", KindIdentity:
		return Identity{}, nil
	case KindKalman:
		if history == nil {
			return nil, errors.New("kalman tracker needs object history")
		}
		return NewKalman(history), nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
}
