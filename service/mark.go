package service

import (
	"bytes"
	img "compressor/converter/image"
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"io"
	"sync"
	"time"
)

// MarkSource supplies the decoded mark image.
type MarkSource interface {
	Mark(ctx context.Context) (*img.Raster, error)
}

// MarkFunc adapts a function to MarkSource.
type MarkFunc func(ctx context.Context) (*img.Raster, error)

func (f MarkFunc) Mark(ctx context.Context) (*img.Raster, error) {
	return f(ctx)
}

// HTTPMarkSource downloads the mark from a URL.
type HTTPMarkSource struct {
	url     string
	timeout time.Duration
}

func NewHTTPMarkSource(url string, timeout time.Duration) *HTTPMarkSource {
	return &HTTPMarkSource{url: url, timeout: timeout}
}

func (h *HTTPMarkSource) Mark(ctx context.Context) (*img.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch mark %s: %w", h.url, err)
	}

	agent := fiber.Get(h.url)
	timeout := h.fetchTimeout(ctx)
	if timeout > 0 {
		agent.Timeout(timeout)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		// A timeout cut to the deadline fires together with the context.
		if _, ok := ctx.Deadline(); ok && timeout != h.timeout && errors.Is(errors.Join(errs...), fasthttp.ErrTimeout) {
			<-ctx.Done()
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
		}
		return nil, fmt.Errorf("fetch mark %s: %w", h.url, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch mark %s: unexpected status %d", h.url, code)
	}

	mark, _, err := img.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode mark: %w", err)
	}

	return mark, nil
}

// fetchTimeout is the configured timeout cut short by the context deadline.
func (h *HTTPMarkSource) fetchTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return h.timeout
	}

	left := max(time.Until(deadline), time.Millisecond)
	if h.timeout > 0 {
		return min(h.timeout, left)
	}
	return left
}

// S3MarkSource reads the mark from an object store.
type S3MarkSource struct {
	s3     s3iface.S3API
	bucket string
	key    string
}

func NewS3MarkSource(client s3iface.S3API, bucket, key string) *S3MarkSource {
	return &S3MarkSource{s3: client, bucket: bucket, key: key}
}

func (s *S3MarkSource) Mark(ctx context.Context) (*img.Raster, error) {
	result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get mark %s/%s: %w", s.bucket, s.key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read mark: %w", err)
	}

	mark, _, err := img.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode mark: %w", err)
	}

	return mark, nil
}

// CachedMarkSource keeps the last fetched mark for ttl. Failed fetches are
// not cached.
type CachedMarkSource struct {
	source MarkSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	mark    *img.Raster
	fetched time.Time
}

func NewCachedMarkSource(source MarkSource, ttl time.Duration) *CachedMarkSource {
	return &CachedMarkSource{source: source, ttl: ttl, now: time.Now}
}

func (c *CachedMarkSource) Mark(ctx context.Context) (*img.Raster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mark != nil && c.now().Sub(c.fetched) < c.ttl {
		return c.mark, nil
	}

	mark, err := c.source.Mark(ctx)
	if err != nil {
		return nil, err
	}
	c.mark = mark
	c.fetched = c.now()

	return mark, nil
}
