package model

import (
	"fmt"
)

// MarkMode selects how the mark is laid over an image.
type MarkMode struct {
	s string
}

var (
	MarkNone      = MarkMode{"none"}
	MarkCentered  = MarkMode{"centered"}
	MarkScattered = MarkMode{"scattered"}
)

func (t MarkMode) String() string {
	return t.s
}

func MakeFromString(s string) (MarkMode, error) {
	switch s {
	case MarkNone.s:
		return MarkNone, nil
	case MarkCentered.s:
		return MarkCentered, nil
	case MarkScattered.s:
		return MarkScattered, nil
	}

	return MarkMode{}, fmt.Errorf("unknown mark mode: %s", s)
}

func (t *MarkMode) UnmarshalText(text []byte) error {
	m, err := MakeFromString(string(text))
	if err != nil {
		return err
	}
	*t = m

	return nil
}

// NeedsMark reports whether the mode draws anything.
func (t MarkMode) NeedsMark() bool {
	return t == MarkCentered || t == MarkScattered
}
