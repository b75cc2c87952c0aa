package format

import (
	"bytes"
	"compressor/converter/image/format/progressive"
	"compressor/shared/log"
	"context"
	"fmt"
	"go.uber.org/zap"
	"image"
)

// Jpeg writes progressive JPEG with Huffman tables optimized per scan. Only
// the quality changes between calls.
type Jpeg struct {
	logger *zap.Logger
}

func MustJpeg(logger *zap.Logger) *Jpeg {
	return &Jpeg{logger: logger}
}

func (w *Jpeg) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	logger := log.LoggerWithTrace(ctx, w.logger)
	logger.Debug(fmt.Sprintf("Converting image to jpeg with quality: %d", quality))

	var buf bytes.Buffer
	buf.Grow(64 * 1024)

	if err := progressive.Encode(&buf, img, &progressive.Options{Quality: quality, OptimizeCoding: true}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
