package watermark

import (
	"image"
	"math/rand/v2"
)

const (
	CenteredOpacity  = 0.35
	ScatteredOpacity = 0.9
	DefaultPadding   = 20
	MaxRotation      = 30.0
)

// Placement describes one drawn copy of the mark. X and Y locate the
// unrotated mark inside the primary image.
type Placement struct {
	X, Y     int
	Rotation float64
	Opacity  float64
}

// Placer decides where copies of a mark of the given size go on an image
// with the given bounds.
type Placer interface {
	Place(bounds image.Rectangle, mark image.Point) []Placement
}

// Centered draws a single unrotated copy in the middle of the image.
type Centered struct {
	Opacity float64
}

func (c Centered) Place(bounds image.Rectangle, mark image.Point) []Placement {
	return []Placement{{
		X:       bounds.Min.X + (bounds.Dx()-mark.X)/2,
		Y:       bounds.Min.Y + (bounds.Dy()-mark.Y)/2,
		Opacity: c.Opacity,
	}}
}

// Scattered draws three or four rotated copies, each in a different quadrant.
type Scattered struct {
	Rand        *rand.Rand
	Opacity     float64
	Padding     int
	MaxRotation float64
}

// NewScattered returns a Scattered placer with the default opacity, padding
// and rotation range.
func NewScattered(r *rand.Rand) *Scattered {
	return &Scattered{
		Rand:        r,
		Opacity:     ScatteredOpacity,
		Padding:     DefaultPadding,
		MaxRotation: MaxRotation,
	}
}

func (s *Scattered) Place(bounds image.Rectangle, mark image.Point) []Placement {
	regions := Regions(bounds)
	s.Rand.Shuffle(len(regions), func(i, j int) {
		regions[i], regions[j] = regions[j], regions[i]
	})

	n := 3 + s.Rand.IntN(2)
	placements := make([]Placement, 0, n)
	for _, r := range regions[:n] {
		placements = append(placements, Placement{
			X:        s.coord(r.Min.X, r.Max.X, mark.X, bounds.Min.X, bounds.Max.X),
			Y:        s.coord(r.Min.Y, r.Max.Y, mark.Y, bounds.Min.Y, bounds.Max.Y),
			Rotation: (s.Rand.Float64()*2 - 1) * s.MaxRotation,
			Opacity:  s.Opacity,
		})
	}

	return placements
}

// coord picks the start of a span of length size inside [lo, hi) with
// padding on both sides. If the span does not fit it is centered in the
// region and then clamped into [min, max).
func (s *Scattered) coord(lo, hi, size, minV, maxV int) int {
	first := lo + s.Padding
	last := hi - size - s.Padding
	if last >= first {
		return first + s.Rand.IntN(last-first+1)
	}

	v := lo + (hi-lo-size)/2

	return max(minV, min(v, maxV-size))
}
