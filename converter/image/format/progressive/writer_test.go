package progressive

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
	"testing"
)

func noisy(w, h int) *image.NRGBA {
	r := rand.New(rand.NewPCG(7, 11))
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := r.IntN(48)
			m.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*200/w + n),
				G: uint8(y*200/h + n),
				B: uint8((x+y)*100/(w+h) + n),
				A: 0xff,
			})
		}
	}
	return m
}

func encode(t *testing.T, m image.Image, o *Options) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := Encode(&buf, m, o); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestEncodeOptimizedSmaller(t *testing.T) {
	src := noisy(256, 192)

	for _, quality := range []int{30, 60, 85} {
		fixed := encode(t, src, &Options{Quality: quality})
		optimized := encode(t, src, &Options{Quality: quality, OptimizeCoding: true})

		if len(optimized) >= len(fixed) {
			t.Errorf("quality %d: optimized %d bytes, fixed %d bytes", quality, len(optimized), len(fixed))
		}
	}
}

func TestEncodeSamePixels(t *testing.T) {
	src := noisy(96, 80)

	a, err := jpeg.Decode(bytes.NewReader(encode(t, src, &Options{Quality: 70})))
	if err != nil {
		t.Fatal(err)
	}
	b, err := jpeg.Decode(bytes.NewReader(encode(t, src, &Options{Quality: 70, OptimizeCoding: true})))
	if err != nil {
		t.Fatal(err)
	}

	ya, ok := a.(*image.YCbCr)
	if !ok {
		t.Fatalf("decoded %T, want *image.YCbCr", a)
	}
	yb := b.(*image.YCbCr)
	if ya.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		t.Errorf("subsampling = %s, want 4:2:0", ya.SubsampleRatio)
	}
	if !bytes.Equal(ya.Y, yb.Y) || !bytes.Equal(ya.Cb, yb.Cb) || !bytes.Equal(ya.Cr, yb.Cr) {
		t.Error("table choice changed the decoded pixels")
	}
}

func TestEncodeSizes(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {33, 17}, {8, 200}, {17, 16}} {
		for _, optimize := range []bool{false, true} {
			data := encode(t, noisy(size.X, size.Y), &Options{Quality: 50, OptimizeCoding: optimize})

			if !bytes.Contains(data, []byte{0xff, sof2Marker}) {
				t.Errorf("%v: no progressive frame header", size)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("%v: %v", size, err)
			}
			if cfg.Width != size.X || cfg.Height != size.Y {
				t.Errorf("%v: decoded %dx%d", size, cfg.Width, cfg.Height)
			}
			if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
				t.Errorf("%v optimize=%t: %v", size, optimize, err)
			}
		}
	}
}

func TestEncodeFidelity(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x*3 + y)})
		}
	}

	out, err := jpeg.Decode(bytes.NewReader(encode(t, src, &Options{Quality: 90, OptimizeCoding: true})))
	if err != nil {
		t.Fatal(err)
	}

	var diff int
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			r, _, _, _ := out.At(x, y).RGBA()
			d := int(r>>8) - int(src.GrayAt(x, y).Y)
			diff += max(d, -d)
		}
	}
	if mean := float64(diff) / (64 * 48); mean > 8 {
		t.Errorf("mean error %.2f", mean)
	}
}

func TestEncodeQualityClamped(t *testing.T) {
	src := noisy(32, 32)

	if !bytes.Equal(encode(t, src, &Options{Quality: 0}), encode(t, src, &Options{Quality: 1})) {
		t.Error("quality 0 differs from quality 1")
	}
	if !bytes.Equal(encode(t, src, &Options{Quality: 150}), encode(t, src, &Options{Quality: 100})) {
		t.Error("quality 150 differs from quality 100")
	}
	if !bytes.Equal(encode(t, src, nil), encode(t, src, &Options{Quality: DefaultQuality})) {
		t.Error("nil options differ from the default quality")
	}
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 0, 10)), nil); err == nil {
		t.Error("empty image encoded")
	}
}
