// Package upload streams a local file to object storage as a single object,
// retrying transient failures with exponential backoff.
package upload

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bitrise-io/go-objectupload/internal"
	"github.com/bitrise-io/go-objectupload/progress"
	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
)

// Uploader uploads one file per Upload call. Attempts are strictly sequential.
type Uploader struct {
	client  storage.Client
	config  Config
	logger  log.Logger
	display progress.Display
	fs      internal.FileSystem
	timer   backoff.Timer
	now     func() time.Time
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithDisplay sets where attempt progress is rendered. Defaults to progress.Discard.
func WithDisplay(display progress.Display) Option {
	return func(u *Uploader) {
		u.display = display
	}
}

// WithTimer replaces the timer used for the backoff waits.
func WithTimer(timer backoff.Timer) Option {
	return func(u *Uploader) {
		u.timer = timer
	}
}

// WithFileSystem replaces the file system the local file is read from.
func WithFileSystem(fs internal.FileSystem) Option {
	return func(u *Uploader) {
		u.fs = fs
	}
}

// New creates a new Uploader with the given configuration.
func New(client storage.Client, config Config, logger log.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		client:  client,
		config:  config,
		logger:  logger,
		display: progress.Discard,
		fs:      internal.RealOS{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload streams target.LocalPath to target.Bucket/target.ObjectName.
//
// Transient storage errors are retried up to Config.MaxRetries attempts in total,
// waiting InitialBackoff*2^attemptIndex between them. Every attempt re-reads the
// file size and re-streams the file from its first byte. Any other error ends
// the upload immediately.
func (u *Uploader) Upload(ctx context.Context, target Target) (Result, error) {
	if err := u.config.validate(); err != nil {
		return Result{}, err
	}

	contentType := u.contentType(target.LocalPath)
	u.logger.Debugf("Content type: %s", contentType)

	var attempts []Attempt
	operation := func() (storage.ObjectInfo, error) {
		attempt := Attempt{Index: len(attempts), StartTime: u.now()}
		object, err := u.attempt(ctx, target, contentType, attempt.Index)
		attempt.Outcome = newOutcome(object, err)
		attempts = append(attempts, attempt)
		u.logger.Debugf("Attempt %d/%d finished in %s: %s", len(attempts), u.config.MaxRetries,
			u.now().Sub(attempt.StartTime).Round(time.Millisecond), attempt.Outcome.Kind)

		switch attempt.Outcome.Kind {
		case OutcomeSucceeded:
			return attempt.Outcome.Object, nil
		case OutcomeTransientFailure:
			if attempt.Index == u.config.MaxRetries-1 {
				return storage.ObjectInfo{}, fmt.Errorf("upload failed after %d attempts: %w", len(attempts), attempt.Outcome.Err)
			}
			return storage.ObjectInfo{}, attempt.Outcome.Err
		default:
			return storage.ObjectInfo{}, backoff.Permanent(fmt.Errorf("upload attempt %d/%d: %w", len(attempts), u.config.MaxRetries, attempt.Outcome.Err))
		}
	}

	notify := func(err error, wait time.Duration) {
		u.logger.Warnf("Attempt %d/%d failed: %s", len(attempts), u.config.MaxRetries, err)
		u.logger.Warnf("Retrying in %s...", wait)
	}

	object, err := backoff.RetryNotifyWithTimerAndData(operation, u.backOff(ctx), notify, u.timer)
	if err != nil {
		return Result{}, err
	}

	u.logger.Donef("'%s' is successfully uploaded as object '%s' to bucket '%s'", target.LocalPath, target.ObjectName, target.Bucket)
	u.logger.Printf("ETag: %s, version ID: %s", object.ETag, versionOrNone(object.VersionID))

	return Result{
		ETag:      object.ETag,
		VersionID: object.VersionID,
		Attempts:  len(attempts),
	}, nil
}

func (u *Uploader) attempt(ctx context.Context, target Target, contentType string, index int) (storage.ObjectInfo, error) {
	info, err := u.fs.Stat(target.LocalPath)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("read file size: %w", err)
	}
	if info.IsDir() {
		return storage.ObjectInfo{}, fmt.Errorf("%s is a directory", target.LocalPath)
	}
	totalBytes := info.Size()

	file, err := u.fs.Open(target.LocalPath)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	u.logger.Debugf("Attempt %d/%d: uploading %d bytes", index+1, u.config.MaxRetries, totalBytes)

	tracker := progress.NewTracker(totalBytes, u.display)
	object, err := u.client.PutObject(ctx, storage.PutObjectInput{
		Bucket:      target.Bucket,
		Key:         target.ObjectName,
		Body:        file,
		Size:        totalBytes,
		ContentType: contentType,
		Progress:    tracker.Add,
	})
	tracker.Finish()

	if err == nil && !tracker.Done() {
		u.logger.Debugf("Backend reported %d of %d bytes", tracker.Seen(), totalBytes)
	}

	return object, err
}

// backOff yields InitialBackoff, 2*InitialBackoff, ... and stops after MaxRetries-1 waits.
func (u *Uploader) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.config.InitialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(u.config.MaxRetries-1)), ctx)
}

func (u *Uploader) contentType(pth string) string {
	if u.config.ContentType != "" {
		return u.config.ContentType
	}

	file, err := u.fs.Open(pth)
	if err != nil {
		// the first attempt reports the error
		return storage.DefaultContentType
	}
	defer file.Close() //nolint:errcheck

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		u.logger.Warnf("Failed to detect content type: %s", err)
		return storage.DefaultContentType
	}
	return mtype.String()
}

func versionOrNone(versionID string) string {
	if versionID == "" {
		return "none"
	}
	return versionID
}
