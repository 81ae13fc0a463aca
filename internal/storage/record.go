package storage

import (
	"database/sql/driver"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// MinContourValues is the smallest meaningful contour: four (x, y) points.
const MinContourValues = 8

// Contour is a polygon stored as a flat x y x y ... sequence of integers.
type Contour []int

// ParseContour parses the whitespace-separated form stored in annotation files.
func ParseContour(s string) (Contour, error) {
	fields := strings.Fields(s)
	c := make(Contour, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid contour coordinate %q: %w", f, err)
		}
		c = append(c, v)
	}
	return c, nil
}

// String returns the stored form of the contour.
func (c Contour) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

// Valid reports whether the contour has whole points and at least four of them.
func (c Contour) Valid() bool {
	return len(c) >= MinContourValues && len(c)%2 == 0
}

// Points returns the contour as (x, y) points.
func (c Contour) Points() []image.Point {
	pts := make([]image.Point, 0, len(c)/2)
	for i := 0; i+1 < len(c); i += 2 {
		pts = append(pts, image.Pt(c[i], c[i+1]))
	}
	return pts
}

// Clone returns an independent copy.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// Translate returns the contour shifted by (dx, dy).
func (c Contour) Translate(dx, dy int) Contour {
	out := c.Clone()
	for i := 0; i+1 < len(out); i += 2 {
		out[i] += dx
		out[i+1] += dy
	}
	return out
}

// Clip returns the contour with every point clamped into r. An empty r
// leaves the contour unchanged.
func (c Contour) Clip(r image.Rectangle) Contour {
	out := c.Clone()
	if r.Empty() {
		return out
	}
	for i := 0; i+1 < len(out); i += 2 {
		out[i] = clamp(out[i], r.Min.X, r.Max.X-1)
		out[i+1] = clamp(out[i+1], r.Min.Y, r.Max.Y-1)
	}
	return out
}

// Centroid returns the mean of the contour's points.
func (c Contour) Centroid() (x, y float64) {
	n := len(c) / 2
	if n == 0 {
		return 0, 0
	}
	for i := 0; i+1 < len(c); i += 2 {
		x += float64(c[i])
		y += float64(c[i+1])
	}
	return x / float64(n), y / float64(n)
}

// Equal reports whether two contours hold the same coordinates.
func (c Contour) Equal(other Contour) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Scan implements sql.Scanner.
func (c *Contour) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("%w: unsupported contour type %T", ErrCorruptStore, src)
	}
	parsed, err := ParseContour(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c Contour) Value() (driver.Value, error) {
	return c.String(), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Record is one object's contour on one frame.
type Record struct {
	Frame    int     `db:"frame" json:"frame" yaml:"frame"`
	ObjectID int     `db:"object" json:"object" yaml:"object"`
	Class    string  `db:"class" json:"class" yaml:"class"`
	Contour  Contour `db:"contour" json:"contour" yaml:"contour,flow"`
	Final    bool    `db:"final" json:"final" yaml:"final"`
}
