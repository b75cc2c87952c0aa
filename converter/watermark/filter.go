package watermark

import (
	"fmt"
	"github.com/disintegration/imaging"
)

// Filter names the resampling filter used to scale the mark.
type Filter struct {
	s string
	f imaging.ResampleFilter
}

var (
	FilterLanczos = Filter{"lanczos", imaging.Lanczos}
	FilterLinear  = Filter{"linear", imaging.Linear}
	FilterBox     = Filter{"box", imaging.Box}
	FilterNearest = Filter{"nearest", imaging.NearestNeighbor}
)

func (f Filter) String() string {
	return f.s
}

// Resample returns the imaging filter. The zero Filter resamples with Lanczos.
func (f Filter) Resample() imaging.ResampleFilter {
	if f.s == "" {
		return imaging.Lanczos
	}
	return f.f
}

func FilterFromString(s string) (Filter, error) {
	for _, f := range []Filter{FilterLanczos, FilterLinear, FilterBox, FilterNearest} {
		if f.s == s {
			return f, nil
		}
	}

	return Filter{}, fmt.Errorf("unknown resample filter: %s", s)
}

func (f *Filter) UnmarshalText(text []byte) error {
	v, err := FilterFromString(string(text))
	if err != nil {
		return err
	}
	*f = v

	return nil
}
