package progress

import (
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb"
)

// Display receives the progress of one attempt at a time.
type Display interface {
	Start(total int64)
	Add(n int64)
	Finish()
}

type discard struct{}

func (discard) Start(int64) {}
func (discard) Add(int64)   {}
func (discard) Finish()     {}

// Discard is a Display that drops every update.
var Discard Display = discard{}

const defaultRefreshRate = 200 * time.Millisecond

// Bar renders attempts as a terminal progress bar. Every Start draws a new bar.
type Bar struct {
	out         io.Writer
	refreshRate time.Duration

	mu  sync.Mutex
	bar *pb.ProgressBar
}

// NewBar ...
func NewBar(out io.Writer) *Bar {
	return &Bar{
		out:         out,
		refreshRate: defaultRefreshRate,
	}
}

// Start finishes the bar of the previous attempt, if any, and starts a new one.
func (b *Bar) Start(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
	}

	bar := pb.New64(total).
		SetUnits(pb.U_BYTES).
		SetRefreshRate(b.refreshRate)
	bar.Output = b.out
	bar.ShowSpeed = true
	b.bar = bar.Start()
}

// Add ...
func (b *Bar) Add(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.Add64(n)
}

// Finish draws the final state and ends the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	b.bar.Finish()
	b.bar = nil
}
