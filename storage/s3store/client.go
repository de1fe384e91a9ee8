// Package s3store implements storage.Client with aws-sdk-go-v2.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/bitrise-io/go-utils/v2/log"
)

// DefaultPartSize is the part size of multipart uploads.
const DefaultPartSize int64 = 10 * 1024 * 1024

// Params ...
type Params struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Secure          bool
	PartSize        int64
}

// Client talks to S3 or an S3-compatible endpoint through the AWS SDK.
type Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	region   string
}

var _ storage.Client = (*Client)(nil)

// New creates a client. SDK level retries are disabled: attempts are counted by the caller.
func New(ctx context.Context, params Params, logger log.Logger) (*Client, error) {
	cfg, err := loadAWSConfig(ctx, params, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(params.Endpoint, params.Secure))
			o.UsePathStyle = true
		}
	})

	partSize := params.PartSize
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	return &Client{client: client, uploader: uploader, region: params.Region}, nil
}

func loadAWSConfig(ctx context.Context, params Params, logger log.Logger) (*aws.Config, error) {
	if params.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithRetryer(func() aws.Retryer {
			return aws.NopRetryer{}
		}),
	}

	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func endpointURL(endpoint string, secure bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if secure {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// BucketExists ...
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, classify("check bucket", err)
}

// MakeBucket ...
func (c *Client) MakeBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	// us-east-1 is the default location and must not be sent explicitly
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	_, err := c.client.CreateBucket(ctx, input)
	return classify("create bucket", err)
}

// PutObject streams input.Body through the multipart upload manager.
// Bodies smaller than the part size go out as a single PutObject request.
func (c *Client) PutObject(ctx context.Context, input storage.PutObjectInput) (storage.ObjectInfo, error) {
	contentType := input.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}

	var body io.Reader = input.Body
	if input.Progress != nil {
		body = &progressReader{reader: input.Body, progress: input.Progress}
	}

	output, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Body:          body,
		Bucket:        aws.String(input.Bucket),
		Key:           aws.String(input.Key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(input.Size),
	})
	if err != nil {
		return storage.ObjectInfo{}, classify("put object", err)
	}

	return storage.ObjectInfo{
		ETag:      strings.Trim(aws.ToString(output.ETag), `"`),
		VersionID: aws.ToString(output.VersionID),
	}, nil
}

type progressReader struct {
	reader   io.Reader
	progress func(n int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.progress(int64(n))
	}
	return n, err
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
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

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return storage.Transient(op, err)
	}
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return storage.Transient(op, err)
	}
	if storage.IsConnectionError(err) {
		return storage.Transient(op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
