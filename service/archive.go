package service

import (
	"bytes"
	"fmt"
	"github.com/klauspost/compress/zip"
	"path"
	"strings"
	"time"
)

// ArchiveName is the name of a batch archive created at t.
func ArchiveName(t time.Time) string {
	return t.Format("20060102_150405") + ".zip"
}

// Bundle writes outputs into a zip archive. Repeated names get a numeric
// suffix so no entry is shadowed.
func Bundle(outputs []*Output, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	seen := make(map[string]int, len(outputs))
	for _, o := range outputs {
		name := uniqueName(o.Name, seen)

		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err = f.Write(o.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}

	return buf.Bytes(), nil
}

func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}

	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	if _, ok := seen[candidate]; ok {
		return uniqueName(candidate, seen)
	}
	seen[candidate] = 1

	return candidate
}
