package workspace

import (
	"fmt"

	"github.com/mfenderov/framemark/internal/cursor"
	"github.com/mfenderov/framemark/internal/storage"
)

// FindObject returns a cursor over every record of object id, by frame.
func (w *Workspace) FindObject(id int) (*cursor.Cursor[storage.Record], error) {
	records, err := w.store.AnnotationsOf(id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("object %d: %w", id, storage.ErrNotFound)
	}
	return cursor.New(records), nil
}

// FindClass returns a cursor over the records of class on the current frame.
func (w *Workspace) FindClass(class string) (*cursor.Cursor[storage.Record], error) {
	records, err := w.store.Get(w.frame, storage.Query{Class: storage.NormalizeClass(class)})
	if err != nil {
		return nil, err
	}
	return cursor.New(records), nil
}
