package image

import "fmt"

type Type struct {
	s string
}

var (
	JPEG = Type{"jpeg"}
	WEBP = Type{"webp"}
	VIPS = Type{"vips-jpeg"}
	AVIF = Type{"avif"}
)

func (t Type) String() string {
	return t.s
}

// MimeType is the content type of the encoded output.
func (t Type) MimeType() string {
	switch t {
	case JPEG, VIPS:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case AVIF:
		return "image/avif"
	}

	return "application/octet-stream"
}

func (t Type) Extension() string {
	switch t {
	case JPEG, VIPS:
		return ".jpg"
	case WEBP:
		return ".webp"
	case AVIF:
		return ".avif"
	}

	return ""
}

func MakeFromString(s string) (Type, error) {
	switch s {
	case JPEG.s:
		return JPEG, nil
	case WEBP.s:
		return WEBP, nil
	case VIPS.s:
		return VIPS, nil
	case AVIF.s:
		return AVIF, nil
	}

	return Type{}, fmt.Errorf("unknown type: %s", s)
}

// UnmarshalText lets Type be used directly in env config structs.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := MakeFromString(string(text))
	if err != nil {
		return err
	}
	*t = v

	return nil
}
