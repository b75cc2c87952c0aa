package service

import (
	"bytes"
	"compressor/api/model"
	"compressor/config"
	"compressor/converter"
	img "compressor/converter/image"
	"compressor/converter/watermark"
	"compressor/shared/log"
	"compressor/shared/trace"
	"context"
	"fmt"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"math/rand/v2"
	"path"
	"strings"
	"time"
)

// Upload is an original image as received from a client.
type Upload struct {
	Name string
	Data []byte
}

func (u Upload) SizeKB() float64 {
	return float64(len(u.Data)) / 1024
}

type Output struct {
	Name         string
	// Key is where the store put Data. Empty without a store.
	Key          string
	Type         img.Type
	Data         []byte
	OriginalKB   float64
	CompressedKB float64
	BudgetKB     float64
	Quality      int
	WithinBudget bool
	Attempts     int
}

type Archive struct {
	Name    string
	Data    []byte
	Outputs []*Output
}

type ImageService struct {
	config *config.Config

	target   *converter.SizeTarget
	codec    img.Type
	marks    MarkSource
	store    Store
	recorder Recorder
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*ImageService)

func WithStore(s Store) Option {
	return func(i *ImageService) {
		i.store = s
	}
}

func WithRecorder(r Recorder) Option {
	return func(i *ImageService) {
		i.recorder = r
	}
}

// WithClock replaces time.Now for archive names and records.
func WithClock(now func() time.Time) Option {
	return func(i *ImageService) {
		i.now = now
	}
}

// NewImageService builds the pipeline. marks may be nil, in which case
// images are compressed without a mark.
func NewImageService(c *config.Config, strategy *img.Strategy, marks MarkSource, logger *zap.Logger, opts ...Option) (*ImageService, error) {
	encoder, err := strategy.Apply(c.Codec)
	if err != nil {
		return nil, err
	}

	target := converter.NewSizeTarget(encoder, logger,
		converter.WithPolicy(converter.Policy{SmallFraction: c.SmallImageFraction}),
		converter.WithQualityRange(c.MinQuality, c.MaxQuality),
	)

	i := &ImageService{
		config: c,
		target: target,
		codec:  c.Codec,
		marks:  marks,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Compress marks and re-encodes a single upload.
func (i *ImageService) Compress(ctx context.Context, upload Upload, mode model.MarkMode) (*Output, error) {
	mark, err := i.mark(ctx, mode)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	out, err := i.compress(ctx, upload, mark, mode, rng)
	if err != nil {
		return nil, err
	}

	if err = i.keep(ctx, mode, out); err != nil {
		return nil, err
	}

	return out, nil
}

// CompressBatch compresses uploads in parallel with one mark fetch and
// bundles the results in a zip archive. Any failure fails the batch.
func (i *ImageService) CompressBatch(ctx context.Context, uploads []Upload, mode model.MarkMode) (*Archive, error) {
	logger := log.LoggerWithTrace(ctx, i.logger)

	mark, err := i.mark(ctx, mode)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	outputs := make([]*Output, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(i.config.Workers, 1))
	for n, upload := range uploads {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(n)))

			out, err := i.compress(gctx, upload, mark, mode, rng)
			if err != nil {
				return fmt.Errorf("%s: %w", upload.Name, err)
			}
			outputs[n] = out

			return i.keep(gctx, mode, out)
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	created := i.now()
	data, err := Bundle(outputs, created)
	if err != nil {
		return nil, err
	}

	logger.Info("Compressed batch", zap.Int("images", len(outputs)), zap.Int("archive_bytes", len(data)))

	return &Archive{Name: ArchiveName(created), Data: data, Outputs: outputs}, nil
}

func (i *ImageService) mark(ctx context.Context, mode model.MarkMode) (*img.Raster, error) {
	if !mode.NeedsMark() || i.marks == nil {
		return nil, nil
	}

	mark, err := i.marks.Mark(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mark: %w", err)
	}

	return mark, nil
}

func (i *ImageService) compress(ctx context.Context, upload Upload, mark *img.Raster, mode model.MarkMode, rng *rand.Rand) (*Output, error) {
	ctx, span := trace.Tracer().Start(ctx, "ImageService.compress")
	defer span.End()
	logger := log.LoggerWithTrace(ctx, i.logger)

	decoded, codec, err := img.Decode(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, err
	}

	primary := decoded.Flatten()
	if mark != nil {
		primary, err = i.compositor(mode, rng).Composite(primary, mark)
		if err != nil {
			return nil, err
		}
	}

	res, err := i.target.Encode(ctx, primary.Image(), upload.SizeKB())
	if err != nil {
		return nil, err
	}

	out := &Output{
		Name:         OutputName(upload.Name, i.codec),
		Type:         i.codec,
		Data:         res.Data,
		OriginalKB:   upload.SizeKB(),
		CompressedKB: res.SizeKB(),
		BudgetKB:     res.BudgetKB,
		Quality:      res.Quality,
		WithinBudget: res.WithinBudget,
		Attempts:     len(res.Attempts),
	}

	span.SetAttributes(
		attribute.String("image.name", upload.Name),
		attribute.String("image.source_codec", codec),
		attribute.Int("image.quality", res.Quality),
		attribute.Int("image.attempts", len(res.Attempts)),
	)
	logger.Debug(fmt.Sprintf("Compressed %s: %.1fKB -> %.1fKB at quality %d",
		upload.Name, out.OriginalKB, out.CompressedKB, out.Quality))

	return out, nil
}

func (i *ImageService) compositor(mode model.MarkMode, rng *rand.Rand) *watermark.Compositor {
	var placer watermark.Placer = watermark.Centered{Opacity: i.config.CenteredOpacity}
	if mode == model.MarkScattered {
		s := watermark.NewScattered(rng)
		s.Opacity = i.config.ScatteredOpacity
		s.Padding = i.config.MarkPadding
		placer = s
	}

	return watermark.NewCompositor(
		watermark.WithPlacer(placer),
		watermark.WithScale(i.config.MarkScale),
		watermark.WithFilter(i.config.MarkFilter),
	)
}

// keep hands the output to the optional store and recorder. A failed
// upload fails the call, a failed record is only logged.
func (i *ImageService) keep(ctx context.Context, mode model.MarkMode, out *Output) error {
	logger := log.LoggerWithTrace(ctx, i.logger)

	if i.store != nil {
		key, err := i.store.Put(ctx, out.Name, out.Data, out.Type.MimeType())
		if err != nil {
			return err
		}
		out.Key = key
	}

	if i.recorder != nil {
		err := i.recorder.Record(ctx, Record{
			Name:         out.Name,
			Key:          out.Key,
			Mode:         mode.String(),
			OriginalKB:   out.OriginalKB,
			CompressedKB: out.CompressedKB,
			BudgetKB:     out.BudgetKB,
			Quality:      out.Quality,
			WithinBudget: out.WithinBudget,
			Attempts:     out.Attempts,
			CreatedAt:    i.now(),
		})
		if err != nil {
			logger.Warn("Error recording compression", zap.Error(err))
		}
	}

	return nil
}

// OutputName keeps the base name of the upload with the extension of t.
func OutputName(name string, t img.Type) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "image"
	}

	return strings.TrimSuffix(base, path.Ext(base)) + t.Extension()
}
