package image

import "errors"

var (
	// ErrInvalidInput is returned for images with a zero dimension or data
	// that cannot be decoded.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEncodeFailure is returned when a codec rejects an image or its
	// parameters, or produces no output.
	ErrEncodeFailure = errors.New("encode failure")
)
