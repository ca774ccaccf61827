package gcs

import (
	"context"
	"io"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadObject streams r into bucketName/objectName with the given content type.
	UploadObject(ctx context.Context, bucketName, objectName, contentType string, r io.Reader) error
}
