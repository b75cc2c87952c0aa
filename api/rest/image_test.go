package rest

import (
	"bytes"
	"compressor/api/model"
	"compressor/config"
	img "compressor/converter/image"
	"compressor/service"
	"context"
	"github.com/gofiber/fiber/v2"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		MarkMode:           model.MarkCentered,
		MarkScale:          0.25,
		MarkPadding:        20,
		CenteredOpacity:    0.35,
		ScatteredOpacity:   0.9,
		Codec:              img.JPEG,
		MinQuality:         20,
		MaxQuality:         85,
		SmallImageFraction: 1.0,
		Workers:            2,
	}

	m := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for i := range m.Pix {
		m.Pix[i] = 0xff
	}
	mark, err := img.NewRaster(m)
	if err != nil {
		t.Fatal(err)
	}
	marks := service.MarkFunc(func(context.Context) (*img.Raster, error) {
		return mark, nil
	})

	s, err := service.NewImageService(cfg, img.MustStrategy(zap.NewNop()), marks, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	NewImageController(app, cfg, s, zap.NewNop())

	return app
}

func photo(t *testing.T) []byte {
	t.Helper()

	m := image.NewNRGBA(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			m.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y * 2), B: uint8(x ^ y), A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, url, field string, files map[string][]byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(fiber.MethodPost, url, &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCompress(t *testing.T) {
	app := newApp(t)

	for _, mode := range []string{"", "none", "centered", "scattered"} {
		resp, err := app.Test(multipartRequest(t, "/compress?mode="+mode, "file", map[string][]byte{"cat.png": photo(t)}), -1)
		if err != nil {
			t.Fatal(err)
		}

		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("mode %q: status = %d, want 200", mode, resp.StatusCode)
		}
		if got := resp.Header.Get(fiber.HeaderContentType); got != "image/jpeg" {
			t.Errorf("mode %q: content type = %q", mode, got)
		}
		if got := resp.Header.Get(fiber.HeaderContentDisposition); got != "inline; filename=cat.jpg" {
			t.Errorf("mode %q: content disposition = %q", mode, got)
		}
		if resp.Header.Get("X-Quality") == "" {
			t.Errorf("mode %q: missing X-Quality", mode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
			t.Errorf("mode %q: body is not a jpeg", mode)
		}
	}
}

func TestCompressBadRequest(t *testing.T) {
	app := newApp(t)

	testCases := []struct {
		name string
		req  *http.Request
	}{
		{"unknown mode", multipartRequest(t, "/compress?mode=tiled", "file", map[string][]byte{"a.png": photo(t)})},
		{"missing file", multipartRequest(t, "/compress", "other", map[string][]byte{"a.png": photo(t)})},
		{"not an image", multipartRequest(t, "/compress", "file", map[string][]byte{"a.png": []byte("plain text")})},
		{"empty batch", multipartRequest(t, "/compress/batch", "files", nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(tc.req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCompressBatch(t *testing.T) {
	app := newApp(t)

	req := multipartRequest(t, "/compress/batch?mode=scattered", "files", map[string][]byte{
		"one.png": photo(t),
		"two.png": photo(t),
	})
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderContentType); got != "application/zip" {
		t.Errorf("content type = %q", got)
	}
	if got := resp.Header.Get("X-Images"); got != "2" {
		t.Errorf("X-Images = %q, want 2", got)
	}
	original, err := strconv.ParseFloat(resp.Header.Get("X-Original-Size"), 64)
	if err != nil {
		t.Fatal(err)
	}
	compressed, err := strconv.ParseFloat(resp.Header.Get("X-Compressed-Size"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if want := 2 * float64(len(photo(t))) / 1024; math.Abs(original-want) > 0.1 {
		t.Errorf("X-Original-Size = %g, want %.1f", original, want)
	}
	if compressed <= 0 {
		t.Errorf("X-Compressed-Size = %g", compressed)
	}
	if resp.Header.Get("X-Over-Budget") == "" {
		t.Error("X-Over-Budget missing")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if len(names) != 2 || !names["one.jpg"] || !names["two.jpg"] {
		t.Errorf("archive entries = %v, want one.jpg and two.jpg", names)
	}
}
