// Package bucket makes sure the upload destination exists before any byte is sent.
package bucket

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-objectupload/storage"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	opCheck  = "check"
	opCreate = "create"
)

// SetupError is returned when the bucket can't be checked or created.
// It is never retried.
type SetupError struct {
	Bucket string
	Op     string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s bucket '%s': %s", e.Op, e.Bucket, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Ensure creates the bucket if it doesn't exist yet and reports whether it did.
// A bucket created concurrently between the check and the create call
// surfaces as a SetupError.
func Ensure(ctx context.Context, client storage.Client, name string, logger log.Logger) (bool, error) {
	if name == "" {
		return false, &SetupError{Bucket: name, Op: opCheck, Err: fmt.Errorf("bucket name must not be empty")}
	}

	found, err := client.BucketExists(ctx, name)
	if err != nil {
		return false, &SetupError{Bucket: name, Op: opCheck, Err: err}
	}

	if found {
		logger.Printf("Bucket '%s' already exists", name)
		return false, nil
	}

	if err := client.MakeBucket(ctx, name); err != nil {
		return false, &SetupError{Bucket: name, Op: opCreate, Err: err}
	}
	logger.Donef("Bucket '%s' created", name)

	return true, nil
}
