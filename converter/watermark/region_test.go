package watermark

import (
	"image"
	"testing"
)

func TestRegionsTile(t *testing.T) {
	for _, bounds := range []image.Rectangle{
		image.Rect(0, 0, 400, 300),
		image.Rect(0, 0, 1, 1),
		image.Rect(0, 0, 1, 7),
		image.Rect(0, 0, 3, 5),
		image.Rect(0, 0, 1001, 2),
		image.Rect(10, 20, 33, 51),
	} {
		regions := Regions(bounds)

		area := 0
		for i, r := range regions {
			if !r.Empty() && !r.In(bounds) {
				t.Errorf("%v: region %d %v leaves the bounds", bounds, i, r)
			}
			area += r.Dx() * r.Dy()

			for j := i + 1; j < len(regions); j++ {
				if !r.Intersect(regions[j]).Empty() {
					t.Errorf("%v: regions %d and %d overlap", bounds, i, j)
				}
			}
		}
		if area != bounds.Dx()*bounds.Dy() {
			t.Errorf("%v: regions cover %d pixels, want %d", bounds, area, bounds.Dx()*bounds.Dy())
		}

		// every pixel lies in exactly one region
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				n := 0
				for _, r := range regions {
					if image.Pt(x, y).In(r) {
						n++
					}
				}
				if n != 1 {
					t.Fatalf("%v: pixel (%d,%d) is in %d regions", bounds, x, y, n)
				}
			}
		}
	}
}
