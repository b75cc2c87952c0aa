// Package watermark overlays translucent copies of a mark image onto a
// primary image.
package watermark

import (
	img "compressor/converter/image"
	"fmt"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"image"
	"image/color"
)

const DefaultScale = 0.25

type Compositor struct {
	placer Placer
	scale  float64
	filter imaging.ResampleFilter
}

type Option func(*Compositor)

func WithPlacer(p Placer) Option {
	return func(c *Compositor) {
		c.placer = p
	}
}

// WithScale sets the mark's long side as a fraction of the primary's short side.
func WithScale(scale float64) Option {
	return func(c *Compositor) {
		c.scale = scale
	}
}

// WithFilter sets the filter used to scale the mark.
func WithFilter(filter Filter) Option {
	return func(c *Compositor) {
		c.filter = filter.Resample()
	}
}

// NewCompositor returns a compositor that centers a single copy of the mark
// unless another Placer is given.
func NewCompositor(opts ...Option) *Compositor {
	c := &Compositor{
		placer: Centered{Opacity: CenteredOpacity},
		scale:  DefaultScale,
		filter: imaging.Lanczos,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Composite returns primary with the mark drawn on it. The result has the
// primary's size and format. Neither input is modified.
func (c *Compositor) Composite(primary, mark *img.Raster) (*img.Raster, error) {
	if primary == nil || primary.Width() <= 0 || primary.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty primary image", img.ErrInvalidInput)
	}
	if mark == nil || mark.Width() <= 0 || mark.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty mark image", img.ErrInvalidInput)
	}

	short := min(primary.Width(), primary.Height())
	scaled := mark.Apply(img.WithLongSide(int(float64(short)*c.scale), c.filter))

	layer := c.Layer(primary.Bounds(), scaled.Image())

	out := imaging.Overlay(primary.Image(), layer, image.Point{}, 1.0)

	result, err := img.NewRasterWithFormat(out, primary.Format())
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Layer draws the placed copies of an already scaled mark onto a transparent
// layer with the given bounds.
func (c *Compositor) Layer(bounds image.Rectangle, mark *image.NRGBA) *image.NRGBA {
	layer := imaging.New(bounds.Dx(), bounds.Dy(), color.Transparent)

	size := mark.Bounds().Size()
	for _, p := range c.placer.Place(layer.Bounds(), size) {
		m := img.WithOpacity(p.Opacity)(img.WithRotation(p.Rotation)(mark))

		// Keep a rotated copy centered on the unrotated footprint.
		rs := m.Bounds().Size()
		offset := image.Pt(p.X+size.X/2-rs.X/2, p.Y+size.Y/2-rs.Y/2)

		draw.Draw(layer, m.Bounds().Add(offset), m, m.Bounds().Min, draw.Over)
	}

	return layer
}
