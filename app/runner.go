// Package app wires configuration, credentials, the storage client, the bucket
// ensurer and the uploader into one run.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bitrise-io/go-objectupload/bucket"
	"github.com/bitrise-io/go-objectupload/config"
	"github.com/bitrise-io/go-objectupload/internal"
	"github.com/bitrise-io/go-objectupload/progress"
	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/bitrise-io/go-objectupload/storage/miniostore"
	"github.com/bitrise-io/go-objectupload/storage/s3store"
	"github.com/bitrise-io/go-objectupload/upload"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// ClientFactory builds the storage client for the configured provider.
type ClientFactory func(ctx context.Context, cfg config.Config, creds config.Credentials, logger log.Logger) (storage.Client, error)

// NewStorageClient is the default ClientFactory.
func NewStorageClient(ctx context.Context, cfg config.Config, creds config.Credentials, logger log.Logger) (storage.Client, error) {
	switch cfg.Provider {
	case config.ProviderMinio:
		client, err := miniostore.New(miniostore.Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: string(creds.AccessKey),
			SecretKey: string(creds.SecretKey),
			Secure:    cfg.Secure,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderS3:
		client, err := s3store.New(ctx, s3store.Params{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     string(creds.AccessKey),
			SecretAccessKey: string(creds.SecretKey),
			Secure:          cfg.Secure,
			PartSize:        cfg.PartSizeMB * units.MiB,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, &config.StartupError{Reason: fmt.Sprintf("unknown storage provider: %s", cfg.Provider)}
	}
}

// Runner uploads one file per Run.
type Runner struct {
	config     config.Config
	logger     log.Logger
	fs         internal.FileSystem
	display    progress.Display
	newClient  ClientFactory
	uploadOpts []upload.Option
}

// Option ...
type Option func(*Runner)

// WithClientFactory replaces NewStorageClient.
func WithClientFactory(factory ClientFactory) Option {
	return func(r *Runner) {
		r.newClient = factory
	}
}

// WithDisplay sets the progress display. Defaults to a bar on stderr.
func WithDisplay(display progress.Display) Option {
	return func(r *Runner) {
		r.display = display
	}
}

// WithFileSystem ...
func WithFileSystem(fs internal.FileSystem) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithUploadOptions passes extra options to the uploader.
func WithUploadOptions(opts ...upload.Option) Option {
	return func(r *Runner) {
		r.uploadOpts = append(r.uploadOpts, opts...)
	}
}

// NewRunner ...
func NewRunner(cfg config.Config, logger log.Logger, opts ...Option) *Runner {
	r := &Runner{
		config:    cfg,
		logger:    logger,
		fs:        internal.RealOS{},
		display:   progress.NewBar(os.Stderr),
		newClient: NewStorageClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ensures the configured bucket exists, then uploads filePath into it
// under the file's base name.
func (r *Runner) Run(ctx context.Context, filePath string) (upload.Result, error) {
	creds, err := config.LoadCredentials(r.config.SecretsPath)
	if err != nil {
		return upload.Result{}, err
	}
	r.logger.Debugf("Credentials loaded from %s", r.config.SecretsPath)

	objectName, err := upload.ObjectName(filePath)
	if err != nil {
		return upload.Result{}, &config.StartupError{Reason: "invalid file path", Err: err}
	}

	info, err := r.fs.Stat(filePath)
	if err != nil {
		return upload.Result{}, fmt.Errorf("read file: %w", err)
	}
	if info.IsDir() {
		return upload.Result{}, &config.StartupError{Reason: fmt.Sprintf("%s is a directory", filePath)}
	}

	r.logger.Println()
	r.logger.Infof("Uploading %s to %s", filePath, r.config.Endpoint)
	r.logger.Printf("File size: %s", units.HumanSizeWithPrecision(float64(info.Size()), 3))
	r.logger.Printf("Bucket: %s, object: %s", r.config.Bucket, objectName)

	client, err := r.newClient(ctx, r.config, creds, r.logger)
	if err != nil {
		return upload.Result{}, fmt.Errorf("create storage client: %w", err)
	}

	if _, err := bucket.Ensure(ctx, client, r.config.Bucket, r.logger); err != nil {
		return upload.Result{}, err
	}

	uploadConfig := upload.Config{
		MaxRetries:     r.config.MaxRetries,
		InitialBackoff: time.Second,
		ContentType:    r.config.ContentType,
	}
	opts := append([]upload.Option{
		upload.WithDisplay(r.display),
		upload.WithFileSystem(r.fs),
	}, r.uploadOpts...)

	uploadStartTime := time.Now()
	uploader := upload.New(client, uploadConfig, r.logger, opts...)
	result, err := uploader.Upload(ctx, upload.Target{
		Endpoint:   r.config.Endpoint,
		Bucket:     r.config.Bucket,
		ObjectName: objectName,
		LocalPath:  filePath,
	})
	if err != nil {
		return upload.Result{}, err
	}
	r.logger.Printf("Took %s", time.Since(uploadStartTime).Round(time.Millisecond))

	return result, nil
}
