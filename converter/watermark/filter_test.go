package watermark

import (
	img "compressor/converter/image"
	"github.com/disintegration/imaging"
	"image/color"
	"testing"
)

func TestFilterFromString(t *testing.T) {
	testCases := []struct {
		name    string
		support float64
	}{
		{"lanczos", imaging.Lanczos.Support},
		{"linear", imaging.Linear.Support},
		{"box", imaging.Box.Support},
		{"nearest", imaging.NearestNeighbor.Support},
	}

	for _, tc := range testCases {
		f, err := FilterFromString(tc.name)
		if err != nil {
			t.Fatal(err)
		}
		if f.String() != tc.name || f.Resample().Support != tc.support {
			t.Errorf("%s: got %s with support %g", tc.name, f, f.Resample().Support)
		}
	}

	if _, err := FilterFromString("bicubic"); err == nil {
		t.Error("unknown filter accepted")
	}
	if (Filter{}).Resample().Support != imaging.Lanczos.Support {
		t.Error("zero filter is not lanczos")
	}
}

func TestCompositeWithFilter(t *testing.T) {
	primary := raster(t, 400, 300, img.RGB, solid(color.NRGBA{A: 0xff}))
	// Vertical stripes two pixels wide, scaled from 150 to 75 across.
	mark := raster(t, 150, 150, img.RGBA, func(x, _ int) color.NRGBA {
		if x%4 < 2 {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})

	out, err := NewCompositor(WithPlacer(Centered{Opacity: 1}), WithFilter(FilterNearest)).Composite(primary, mark)
	if err != nil {
		t.Fatal(err)
	}

	// Nearest neighbour keeps the two levels, other filters blend them.
	for x := 170; x < 230; x++ {
		if r := out.Image().NRGBAAt(x, 150).R; r != 0 && r != 255 {
			t.Fatalf("pixel (%d,150) = %d, want 0 or 255", x, r)
		}
	}
}
