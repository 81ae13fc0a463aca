// Package source reads the frames an annotation refers to, from a video file
// or a numbered image sequence. Frames are 1-based.
package source

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
)

var (
	// ErrSourceNotFound is returned when the video or first image does not exist.
	ErrSourceNotFound = errors.New("frame source not found")

	// ErrFrameRead is returned when a frame cannot be read or decoded.
	ErrFrameRead = errors.New("failed to read frame")
)

// Source delivers frame images by index.
type Source interface {
	// Len returns the number of frames.
	Len() int
	// Read returns frame i, counting from 1.
	Read(ctx context.Context, i int) (image.Image, error)
	// Bounds returns the frame rectangle.
	Bounds() image.Rectangle
	// Path returns the identifier the source was opened from.
	Path() string
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether path names a single image rather than a video.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Open opens identifier as an image sequence when it names an image file and
// as a video otherwise.
func Open(ctx context.Context, identifier string) (Source, error) {
	if IsImage(identifier) {
		return OpenSequence(identifier)
	}
	return OpenVideo(ctx, identifier)
}
