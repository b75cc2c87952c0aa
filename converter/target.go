// Package converter re-encodes images to fit a size budget derived from
// their original size.
package converter

import (
	img "compressor/converter/image"
	"compressor/shared/log"
	"context"
	"fmt"
	"go.uber.org/zap"
	"image"
	"math"
)

const (
	MinQuality = 20
	MaxQuality = 85

	// betterTolerance is the share of the best accepted size a later
	// accepted attempt must exceed to replace it.
	betterTolerance = 0.95
)

// Attempt is a single encode during the quality search.
type Attempt struct {
	Quality int
	Size    int
}

func (a Attempt) SizeKB() float64 {
	return float64(a.Size) / 1024
}

type Result struct {
	Data     []byte
	Quality  int
	BudgetKB float64
	// WithinBudget is false when even the lowest quality was too large.
	WithinBudget bool
	Attempts     []Attempt
}

func (r *Result) SizeKB() float64 {
	return float64(len(r.Data)) / 1024
}

// Monotonic reports whether the attempts agree with size never growing as
// quality drops.
func (r *Result) Monotonic() bool {
	for _, a := range r.Attempts {
		for _, b := range r.Attempts {
			if a.Quality < b.Quality && a.Size > b.Size {
				return false
			}
		}
	}

	return true
}

type SizeTarget struct {
	encoder    img.Encoder
	policy     Policy
	minQuality int
	maxQuality int
	logger     *zap.Logger
}

type Option func(*SizeTarget)

func WithPolicy(p Policy) Option {
	return func(s *SizeTarget) {
		s.policy = p
	}
}

// WithQualityRange bounds the search. Values are clamped to [1,100].
func WithQualityRange(lo, hi int) Option {
	return func(s *SizeTarget) {
		s.minQuality = max(1, min(lo, 100))
		s.maxQuality = max(s.minQuality, min(hi, 100))
	}
}

func NewSizeTarget(encoder img.Encoder, logger *zap.Logger, opts ...Option) *SizeTarget {
	s := &SizeTarget{
		encoder:    encoder,
		policy:     DefaultPolicy(),
		minQuality: MinQuality,
		maxQuality: MaxQuality,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Encode searches for the highest quality whose output fits the budget for
// originalSizeKB. If no quality fits, the image is encoded at the lowest
// quality and returned with WithinBudget unset.
func (s *SizeTarget) Encode(ctx context.Context, m image.Image, originalSizeKB float64) (*Result, error) {
	logger := log.LoggerWithTrace(ctx, s.logger)

	if m == nil || m.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", img.ErrInvalidInput)
	}

	res := &Result{BudgetKB: s.policy.Budget(originalSizeKB)}

	var best []byte
	bestSize := math.Inf(1)
	lo, hi := s.minQuality, s.maxQuality
	for lo <= hi {
		quality := (lo + hi) / 2

		data, err := s.encode(ctx, m, quality)
		if err != nil {
			return nil, err
		}
		attempt := Attempt{Quality: quality, Size: len(data)}
		res.Attempts = append(res.Attempts, attempt)

		logger.Debug("Encoded attempt",
			zap.Int("quality", quality),
			zap.Float64("size_kb", attempt.SizeKB()),
			zap.Float64("budget_kb", res.BudgetKB))

		if attempt.SizeKB() <= res.BudgetKB {
			if best == nil || attempt.SizeKB() > bestSize*betterTolerance {
				best = data
				bestSize = attempt.SizeKB()
				res.Quality = quality
			}
			lo = quality + 1
		} else {
			hi = quality - 1
		}
	}

	if !res.Monotonic() {
		logger.Warn("Encoded size is not monotonic in quality", zap.Any("attempts", res.Attempts))
	}

	if best != nil {
		res.Data = best
		res.WithinBudget = true

		return res, nil
	}

	data, err := s.encode(ctx, m, lo)
	if err != nil {
		return nil, err
	}
	res.Attempts = append(res.Attempts, Attempt{Quality: lo, Size: len(data)})
	res.Data = data
	res.Quality = lo

	return res, nil
}

func (s *SizeTarget) encode(ctx context.Context, m image.Image, quality int) ([]byte, error) {
	data, err := s.encoder.Encode(ctx, m, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: quality %d: %w", img.ErrEncodeFailure, quality, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: quality %d: empty output", img.ErrEncodeFailure, quality)
	}

	return data, nil
}
