package image

import (
	"context"
	"fmt"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// Encoder encodes an image with a lossy codec at the given quality (1-100).
type Encoder interface {
	Encode(ctx context.Context, img image.Image, quality int) ([]byte, error)
}

// Format is the pixel format family of a Raster.
type Format int

const (
	RGB Format = iota + 1
	RGBA
)

func (f Format) String() string {
	switch f {
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	}

	return fmt.Sprintf("Format(%d)", int(f))
}

// Raster is a decoded bitmap that owns its pixel buffer.
// Every operation that changes pixels returns a new Raster.
type Raster struct {
	pix    *image.NRGBA
	format Format
}

// NewRaster copies img into a new Raster, inferring the format from the
// concrete image type.
func NewRaster(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}

	return NewRasterWithFormat(img, formatOf(img))
}

// NewRasterWithFormat copies img into a new Raster with an explicit format.
// For RGB the alpha channel of the copy is dropped.
func NewRasterWithFormat(img image.Image, f Format) (*Raster, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if f != RGB && f != RGBA {
		return nil, fmt.Errorf("%w: unknown format %s", ErrInvalidInput, f)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: image is %dx%d", ErrInvalidInput, b.Dx(), b.Dy())
	}

	pix := imaging.Clone(img)
	if f == RGB {
		dropAlpha(pix)
	}

	return &Raster{pix: pix, format: f}, nil
}

// Decode reads an encoded image and returns it with the name of its codec.
func Decode(reader io.Reader) (*Raster, string, error) {
	img, name, err := image.Decode(reader)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	r, err := NewRaster(img)
	if err != nil {
		return nil, "", err
	}

	return r, name, nil
}

func (r *Raster) Format() Format {
	return r.format
}

func (r *Raster) Bounds() image.Rectangle {
	if r == nil || r.pix == nil {
		return image.Rectangle{}
	}
	return r.pix.Bounds()
}

func (r *Raster) Width() int {
	return r.Bounds().Dx()
}

func (r *Raster) Height() int {
	return r.Bounds().Dy()
}

// Image returns the underlying buffer. Callers must not modify it; use
// Clone for a writable copy.
func (r *Raster) Image() *image.NRGBA {
	return r.pix
}

func (r *Raster) Clone() *Raster {
	return &Raster{pix: imaging.Clone(r.pix), format: r.format}
}

// Flatten returns an RGB copy of r with the alpha channel dropped.
// Color values are kept as stored, no background is blended in.
func (r *Raster) Flatten() *Raster {
	pix := imaging.Clone(r.pix)
	dropAlpha(pix)

	return &Raster{pix: pix, format: RGB}
}

func dropAlpha(pix *image.NRGBA) {
	for i := 3; i < len(pix.Pix); i += 4 {
		pix.Pix[i] = 0xff
	}
}

func formatOf(img image.Image) Format {
	switch m := img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return RGB
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return RGBA
			}
		}
		return RGB
	}

	if img.ColorModel() == color.YCbCrModel || img.ColorModel() == color.GrayModel {
		return RGB
	}

	return RGBA
}
