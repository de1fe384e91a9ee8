package storage

import (
	"errors"
	"fmt"
)

// ErrorKind tells the uploader whether a failed call may be retried.
type ErrorKind int

const (
	// KindUnclassified is the zero value: the backend did not declare what the
	// error means, so it must not be retried.
	KindUnclassified ErrorKind = iota
	// KindTransient errors (service error responses, dropped connections) may succeed on retry.
	KindTransient
	// KindFatal errors are known not to be recoverable by retrying.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindUnclassified:
		return "unclassified"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a backend error with its classification attached.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure of op.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Fatal wraps err as a non-retryable failure of op.
func Fatal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindFatal, Op: op, Err: err}
}

// KindOf returns the classification of the outermost *Error in err's chain.
func KindOf(err error) ErrorKind {
	var storageErr *Error
	if errors.As(err, &storageErr) {
		return storageErr.Kind
	}
	return KindUnclassified
}

// IsTransient ...
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
