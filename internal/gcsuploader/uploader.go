package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// UploadWithClient streams r into a GCS object using the provided client.
// The object writer is closed on every path; a failed copy cancels the
// upload so no partial object is finalized.
func UploadWithClient(ctx context.Context, client *storage.Client, bucketName, objectName, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		// Cancelling before Close aborts the resumable upload.
		cancel()
		_ = w.Close()
		return fmt.Errorf("UploadWithClient: copy to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadWithClient: finalize upload: %w", err)
	}

	return nil
}

// ParseDestination splits an export destination into bucket and object
// prefix. It accepts "bucket", "gs://bucket" and "gs://bucket/prefix".
func ParseDestination(dest string) (bucket, prefix string, err error) {
	if !strings.HasPrefix(dest, "gs://") {
		if dest == "" || strings.Contains(dest, "/") || strings.Contains(dest, ":") {
			return "", "", fmt.Errorf("invalid GCS destination: %q", dest)
		}
		return dest, "", nil
	}

	trimmed := strings.Trim(strings.TrimPrefix(dest, "gs://"), "/")
	bucket, prefix, _ = strings.Cut(trimmed, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid GCS destination (no bucket): %q", dest)
	}

	return bucket, path.Clean("/" + prefix)[1:], nil
}
