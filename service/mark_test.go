package service

import (
	"bytes"
	img "compressor/converter/image"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCachedMarkSource(t *testing.T) {
	calls := 0
	fail := false
	mark, _, err := img.Decode(bytes.NewReader(encodePNG(t, 4, 4, color.NRGBA{A: 255})))
	if err != nil {
		t.Fatal(err)
	}

	source := MarkFunc(func(context.Context) (*img.Raster, error) {
		calls++
		if fail {
			return nil, errors.New("offline")
		}
		return mark, nil
	})

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCachedMarkSource(source, time.Minute)
	c.now = func() time.Time { return now }

	for range 3 {
		if _, err := c.Mark(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("%d fetches within ttl, want 1", calls)
	}

	now = now.Add(time.Minute)
	fail = true
	if _, err := c.Mark(context.Background()); err == nil {
		t.Error("expected the fetch error after expiry")
	}
	if _, err := c.Mark(context.Background()); err == nil {
		t.Error("failed fetch was cached")
	}
	if calls != 3 {
		t.Errorf("%d fetches, want 3", calls)
	}

	fail = false
	got, err := c.Mark(context.Background())
	if err != nil || got != mark {
		t.Errorf("got %v, %v after recovery", got, err)
	}
}

func TestHTTPMarkSource(t *testing.T) {
	data := encodePNG(t, 30, 20, color.NRGBA{R: 9, A: 128})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/logo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	mark, err := NewHTTPMarkSource(srv.URL+"/logo.png", time.Second).Mark(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mark.Width() != 30 || mark.Height() != 20 || mark.Format() != img.RGBA {
		t.Errorf("got %dx%d %s, want 30x20 RGBA", mark.Width(), mark.Height(), mark.Format())
	}

	if _, err = NewHTTPMarkSource(srv.URL+"/missing.png", time.Second).Mark(context.Background()); err == nil {
		t.Error("expected an error for a 404")
	}
}

func TestHTTPMarkSourceContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	source := NewHTTPMarkSource(srv.URL+"/logo.png", 10*time.Second)

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := source.Mark(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want deadline exceeded", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("fetch took %s past a 100ms deadline", elapsed)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		before := hits.Load()

		if _, err := source.Mark(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want canceled", err)
		}
		if hits.Load() != before {
			t.Error("canceled fetch reached the server")
		}
	})
}

func TestS3MarkSource(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"assets/marks/logo.png": encodePNG(t, 12, 8, color.NRGBA{G: 40, A: 255}),
		"assets/marks/bad.png":  []byte("not an image"),
	}}

	mark, err := NewS3MarkSource(client, "assets", "marks/logo.png").Mark(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if mark.Width() != 12 || mark.Height() != 8 {
		t.Errorf("size = %dx%d, want 12x8", mark.Width(), mark.Height())
	}

	if _, err = NewS3MarkSource(client, "assets", "marks/none.png").Mark(context.Background()); err == nil {
		t.Error("expected an error for a missing key")
	}
	if _, err = NewS3MarkSource(client, "assets", "marks/bad.png").Mark(context.Background()); !errors.Is(err, img.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
