package upload

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bitrise-io/go-objectupload/storage"
)

// Target describes where a local file goes. It doesn't change during an upload.
type Target struct {
	Endpoint   string
	Bucket     string
	ObjectName string
	LocalPath  string
}

// Result of a successful upload.
type Result struct {
	ETag      string
	VersionID string
	Attempts  int
}

// OutcomeKind ...
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota
	OutcomeTransientFailure
	OutcomeFatalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeTransientFailure:
		return "transient failure"
	case OutcomeFatalFailure:
		return "fatal failure"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome of a single attempt.
type Outcome struct {
	Kind   OutcomeKind
	Object storage.ObjectInfo
	Err    error
}

// Attempt is one iteration of the retry loop.
type Attempt struct {
	Index     int
	StartTime time.Time
	Outcome   Outcome
}

func newOutcome(object storage.ObjectInfo, err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSucceeded, Object: object}
	}

	switch kind := storage.KindOf(err); kind {
	case storage.KindTransient:
		return Outcome{Kind: OutcomeTransientFailure, Err: err}
	case storage.KindFatal, storage.KindUnclassified:
		return Outcome{Kind: OutcomeFatalFailure, Err: err}
	default:
		return Outcome{Kind: OutcomeFatalFailure, Err: fmt.Errorf("unknown error kind %s: %w", kind, err)}
	}
}

// ObjectName returns the last segment of localPath, which becomes the object key.
func ObjectName(localPath string) (string, error) {
	separators := "/"
	if os.PathSeparator != '/' {
		separators += string(os.PathSeparator)
	}

	name := localPath[strings.LastIndexAny(localPath, separators)+1:]
	if name == "" {
		return "", fmt.Errorf("path '%s' doesn't end with a file name", localPath)
	}
	return name, nil
}
