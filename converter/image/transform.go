package image

import (
	"github.com/disintegration/imaging"
	"image"
	"image/color"
)

// Transform derives a new image from img. Implementations never write to img.
type Transform func(img *image.NRGBA) *image.NRGBA

// Apply runs funcs in order on a copy of r.
func (r *Raster) Apply(funcs ...Transform) *Raster {
	pix := imaging.Clone(r.pix)
	for _, f := range funcs {
		pix = f(pix)
	}

	return &Raster{pix: pix, format: r.format}
}

// WithLongSide resizes so that the larger dimension equals size, keeping the
// aspect ratio. The smaller dimension never drops below one pixel.
func WithLongSide(size int, filter imaging.ResampleFilter) Transform {
	return func(img *image.NRGBA) *image.NRGBA {
		n := max(size, 1)
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		if w >= h {
			return imaging.Resize(img, n, max(h*n/w, 1), filter)
		}
		return imaging.Resize(img, max(w*n/h, 1), n, filter)
	}
}

// WithRotation rotates counter-clockwise by angle degrees. The bounds grow
// to hold the rotated corners and uncovered pixels are transparent.
func WithRotation(angle float64) Transform {
	return func(img *image.NRGBA) *image.NRGBA {
		if angle == 0 {
			return img
		}
		return imaging.Rotate(img, angle, color.Transparent)
	}
}

// WithOpacity scales every alpha value by opacity, rounding down.
func WithOpacity(opacity float64) Transform {
	return func(img *image.NRGBA) *image.NRGBA {
		out := imaging.Clone(img)
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = ScaleAlpha(out.Pix[i], opacity)
		}
		return out
	}
}

// ScaleAlpha returns floor(a*opacity) clamped to [0,255].
func ScaleAlpha(a uint8, opacity float64) uint8 {
	v := int(float64(a) * opacity)
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	}

	return uint8(v)
}
