// Package vips encodes through libvips. It needs the shared library at
// build and run time, so it is kept apart from the pure Go codecs.
package vips

import (
	"bytes"
	"compressor/shared/log"
	"context"
	"fmt"
	"github.com/h2non/bimg"
	"go.uber.org/zap"
	"image"
	"image/png"
)

// Codec encodes with a fixed libvips output type.
type Codec struct {
	t      bimg.ImageType
	name   string
	logger *zap.Logger
}

// MustJpeg returns an interlaced (progressive) JPEG encoder.
func MustJpeg(logger *zap.Logger) *Codec {
	return &Codec{t: bimg.JPEG, name: "jpeg", logger: logger}
}

func MustAvif(logger *zap.Logger) *Codec {
	return &Codec{t: bimg.AVIF, name: "avif", logger: logger}
}

func (c *Codec) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	logger := log.LoggerWithTrace(ctx, c.logger)
	logger.Debug(fmt.Sprintf("Converting image to %s with quality: %d", c.name, quality))

	// libvips only takes encoded input. PNG keeps the intermediate lossless.
	var src bytes.Buffer
	if err := png.Encode(&src, img); err != nil {
		return nil, err
	}

	return bimg.NewImage(src.Bytes()).Process(bimg.Options{
		Type:          c.t,
		Quality:       quality,
		Interlace:     true,
		StripMetadata: true,
	})
}
