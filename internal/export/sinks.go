package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/finance-dashboard/internal/gcs"
)

// HTTPSink delivers a file as a browser download on an HTTP response.
type HTTPSink struct {
	W http.ResponseWriter
}

// Kind implements FileSink.
func (s *HTTPSink) Kind() string { return "http" }

// Save implements FileSink. Headers are committed before the body is written,
// so a failed write cannot be turned into an error response afterwards.
func (s *HTTPSink) Save(ctx context.Context, file File) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	h := s.W.Header()
	h.Set("Content-Type", file.ContentType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	h.Set("Content-Length", strconv.Itoa(len(file.Content)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	s.W.WriteHeader(http.StatusOK)

	n, err := s.W.Write(file.Content)
	if err != nil {
		return SaveResult{}, fmt.Errorf("HTTPSink.Save: write body: %w", err)
	}

	return SaveResult{Location: file.Name, Bytes: int64(n)}, nil
}

// DirSink writes files into a local directory. Files appear atomically: the
// content goes to a temporary file that is renamed into place.
type DirSink struct {
	Dir string
}

// Kind implements FileSink.
func (s *DirSink) Kind() string { return "dir" }

// Save implements FileSink.
func (s *DirSink) Save(ctx context.Context, file File) (res SaveResult, err error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return SaveResult{}, fmt.Errorf("DirSink.Save: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+file.Name+".*.tmp")
	if err != nil {
		return SaveResult{}, fmt.Errorf("DirSink.Save: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := tmp.Write(file.Content)
	if err != nil {
		return SaveResult{}, fmt.Errorf("DirSink.Save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return SaveResult{}, fmt.Errorf("DirSink.Save: close: %w", err)
	}

	target := filepath.Join(s.Dir, file.Name)
	if err := os.Rename(tmpName, target); err != nil {
		return SaveResult{}, fmt.Errorf("DirSink.Save: rename: %w", err)
	}
	committed = true

	return SaveResult{Location: target, Bytes: int64(n)}, nil
}

// GCSSink uploads files to a Cloud Storage bucket under an optional prefix.
type GCSSink struct {
	Storage gcs.StorageService
	Bucket  string
	Prefix  string
}

// Kind implements FileSink.
func (s *GCSSink) Kind() string { return "gcs" }

// ObjectName returns the object path a file with the given name is stored at.
func (s *GCSSink) ObjectName(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// Save implements FileSink.
func (s *GCSSink) Save(ctx context.Context, file File) (SaveResult, error) {
	if s.Bucket == "" {
		return SaveResult{}, fmt.Errorf("GCSSink.Save: bucket is required")
	}

	object := s.ObjectName(file.Name)
	if err := s.Storage.UploadObject(ctx, s.Bucket, object, file.ContentType, bytes.NewReader(file.Content)); err != nil {
		return SaveResult{}, fmt.Errorf("GCSSink.Save: %w", err)
	}

	return SaveResult{
		Location: fmt.Sprintf("gs://%s/%s", s.Bucket, object),
		Bytes:    int64(len(file.Content)),
	}, nil
}

// StreamSink returns the content as a stream by copying it to W.
type StreamSink struct {
	W io.Writer
}

// Kind implements FileSink.
func (s *StreamSink) Kind() string { return "stream" }

// Save implements FileSink.
func (s *StreamSink) Save(ctx context.Context, file File) (SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return SaveResult{}, err
	}

	n, err := io.Copy(s.W, bytes.NewReader(file.Content))
	if err != nil {
		return SaveResult{}, fmt.Errorf("StreamSink.Save: %w", err)
	}
	return SaveResult{Location: file.Name, Bytes: n}, nil
}

var (
	_ FileSink = (*HTTPSink)(nil)
	_ FileSink = (*DirSink)(nil)
	_ FileSink = (*GCSSink)(nil)
	_ FileSink = (*StreamSink)(nil)
)
