// Package miniostore implements storage.Client with minio-go.
package miniostore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config ...
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool

	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to an S3-compatible endpoint through minio-go.
type Client struct {
	client *minio.Client
	region string
}

var _ storage.Client = (*Client)(nil)

// New creates a client. No request is sent until the first call.
func New(cfg Config) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Region:    cfg.Region,
		Transport: cfg.Transport,
		// A single request per call: attempts are counted by the caller.
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", cfg.Endpoint, err)
	}

	return &Client{client: client, region: cfg.Region}, nil
}

// BucketExists ...
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, classify("check bucket", err)
	}
	return exists, nil
}

// MakeBucket ...
func (c *Client) MakeBucket(ctx context.Context, bucket string) error {
	err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region})
	return classify("create bucket", err)
}

// PutObject streams input.Body as one object. Large bodies are sent as a
// multipart upload by minio-go, in which case Progress is called from
// several goroutines.
func (c *Client) PutObject(ctx context.Context, input storage.PutObjectInput) (storage.ObjectInfo, error) {
	contentType := input.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if input.Progress != nil {
		opts.Progress = progressHook(input.Progress)
	}

	info, err := c.client.PutObject(ctx, input.Bucket, input.Key, input.Body, input.Size, opts)
	if err != nil {
		return storage.ObjectInfo{}, classify("put object", err)
	}

	return storage.ObjectInfo{ETag: info.ETag, VersionID: info.VersionID}, nil
}

// progressHook receives every chunk minio-go has read from the body.
type progressHook func(n int64)

func (h progressHook) Read(p []byte) (int, error) {
	h(int64(len(p)))
	return len(p), nil
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if storage.IsContextError(err) {
		return storage.Fatal(op, err)
	}
	if storage.IsTLSError(err) {
		return storage.Fatal(op, err)
	}

	var errResp minio.ErrorResponse
	if errors.As(err, &errResp) {
		return storage.Transient(op, err)
	}
	if storage.IsConnectionError(err) {
		return storage.Transient(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
