// Package storage describes the object storage capability the uploader needs
// and the closed set of error kinds every backend has to classify its
// failures into.
package storage

import (
	"context"
	"io"
)

// Client is the subset of an S3-compatible backend used for a single-file upload.
type Client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	// PutObject streams Body as one object. Progress, when set, receives the
	// size of every chunk the transport consumes and may be called from
	// goroutines owned by the transport.
	PutObject(ctx context.Context, input PutObjectInput) (ObjectInfo, error)
}

// PutObjectInput ...
type PutObjectInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	Size        int64
	ContentType string
	Progress    func(n int64)
}

// ObjectInfo is returned by a successful PutObject.
type ObjectInfo struct {
	ETag      string
	VersionID string
}

// DefaultContentType is used when the content type can't be detected.
const DefaultContentType = "application/octet-stream"
