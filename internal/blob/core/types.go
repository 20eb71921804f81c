// Package core defines the blob storage abstraction that holds cage file
// attachments. Rows in the files collection carry a file_path that maps onto a
// blob key.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3" // S3 / MinIO compatible
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is the slice of object storage the cage subsystem needs: attachments
// are written by the upload flow and purged when their cage is deleted.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

// ErrNotFound is returned by Head for keys that are not stored.
var ErrNotFound = errors.New("blobstore: not found")

// KeyForFilePath converts a stored file_path ("./uploads/H-1/card.pdf",
// "/uploads/H-1/card.pdf") into a blob key. Paths that would escape the store
// root are rejected.
func KeyForFilePath(filePath string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(filePath, "\\", "/"))
	if p == "" {
		return "", fmt.Errorf("empty file path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("file path %q escapes blob root", filePath)
		}
	}
	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" {
		return "", fmt.Errorf("file path %q has no object name", filePath)
	}
	return key, nil
}
