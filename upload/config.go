package upload

import (
	"fmt"
	"time"
)

// Config holds configuration for the uploader.
type Config struct {
	// MaxRetries is the maximum number of upload attempts, the first one included.
	// Default: 3
	MaxRetries int

	// InitialBackoff is the wait after the first failed attempt. Every later
	// wait doubles it: 1s, 2s, 4s, ...
	// Default: 1 second
	InitialBackoff time.Duration

	// ContentType of the uploaded object.
	// If empty, it is detected from the first bytes of the file.
	ContentType string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: time.Second,
	}
}

func (c Config) validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries should be at least 1, got %d", c.MaxRetries)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial backoff should not be negative, got %s", c.InitialBackoff)
	}
	return nil
}

