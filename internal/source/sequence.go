package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var lastDigits = regexp.MustCompile(`\d+`)

// ImageSequence is a run of numbered image files such as img_0001.png,
// img_0002.png. The last run of digits in the base name is the counter.
type ImageSequence struct {
	first  string
	dir    string
	prefix string
	suffix string
	width  int
	start  int
	count  int
	bounds image.Rectangle
}

// OpenSequence opens the sequence that starts at the image named first.
// Frames are counted until the first missing number.
func OpenSequence(first string) (*ImageSequence, error) {
	if _, err := os.Stat(first); err != nil {
		return nil, fmt.Errorf("%s: %w", first, ErrSourceNotFound)
	}

	dir, base := filepath.Split(first)
	locs := lastDigits.FindAllStringIndex(base, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("%s: image name has no frame number: %w", first, ErrSourceNotFound)
	}
	loc := locs[len(locs)-1]
	start, err := strconv.Atoi(base[loc[0]:loc[1]])
	if err != nil {
		return nil, fmt.Errorf("%s: invalid frame number: %w", first, err)
	}

	seq := &ImageSequence{
		first:  first,
		dir:    dir,
		prefix: base[:loc[0]],
		suffix: base[loc[1]:],
		width:  loc[1] - loc[0],
		start:  start,
	}

	for {
		if _, err := os.Stat(seq.path(seq.count + 1)); err != nil {
			break
		}
		seq.count++
	}

	f, err := os.Open(first)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", first, ErrSourceNotFound)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", first, ErrFrameRead, err)
	}
	seq.bounds = image.Rect(0, 0, cfg.Width, cfg.Height)

	return seq, nil
}

func (s *ImageSequence) path(i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%0*d%s", s.prefix, s.width, s.start+i-1, s.suffix))
}

// Len implements Source.
func (s *ImageSequence) Len() int { return s.count }

// Bounds implements Source.
func (s *ImageSequence) Bounds() image.Rectangle { return s.bounds }

// Path implements Source.
func (s *ImageSequence) Path() string { return s.first }

// Read implements Source.
func (s *ImageSequence) Read(ctx context.Context, i int) (image.Image, error) {
	if i < 1 || i > s.count {
		return nil, fmt.Errorf("frame %d of %d: %w", i, s.count, ErrFrameRead)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(i))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v", i, ErrFrameRead, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v", i, ErrFrameRead, err)
	}
	return img, nil
}
