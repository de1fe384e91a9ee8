// Package progress counts the bytes an upload attempt has handed to the
// transport and renders them for the user.
package progress

import (
	"sync/atomic"
)

// Tracker holds the progress of a single upload attempt.
// Add is safe for concurrent use: storage SDKs report progress from their own
// I/O goroutines.
type Tracker struct {
	total   int64
	seen    atomic.Int64
	display Display
}

// NewTracker starts a new attempt of total bytes on display.
// A nil display discards updates.
func NewTracker(total int64, display Display) *Tracker {
	if display == nil {
		display = Discard
	}
	display.Start(total)
	return &Tracker{
		total:   total,
		display: display,
	}
}

// Add records n more bytes and forwards the accepted increment to the display.
// The counter never goes past the total.
func (t *Tracker) Add(n int64) {
	if n <= 0 {
		return
	}

	for {
		seen := t.seen.Load()
		next := seen + n
		if next > t.total {
			next = t.total
		}
		if next == seen {
			return
		}
		if t.seen.CompareAndSwap(seen, next) {
			t.display.Add(next - seen)
			return
		}
	}
}

// Seen ...
func (t *Tracker) Seen() int64 {
	return t.seen.Load()
}

// Total ...
func (t *Tracker) Total() int64 {
	return t.total
}

// Done reports whether every byte of the attempt was consumed.
func (t *Tracker) Done() bool {
	return t.Seen() == t.total
}

// Finish closes the display line of this attempt.
func (t *Tracker) Finish() {
	t.display.Finish()
}
