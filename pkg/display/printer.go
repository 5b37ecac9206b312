package display

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/boristopalov/gridnav/pkg/session"
	"github.com/gosuri/uilive"
)

// Printer redraws the latest frame in place on a terminal.
type Printer struct {
	frequency    time.Duration
	historyLines int
	writer       *uilive.Writer

	mu    sync.Mutex
	frame string
	dirty bool

	doneCh    chan struct{}
	stoppedCh chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type PrinterOption func(*Printer)

// WithOutput redirects the printer, e.g. to a buffer in tests.
func WithOutput(w io.Writer) PrinterOption {
	return func(p *Printer) {
		p.writer.Out = w
	}
}

func WithHistoryLines(n int) PrinterOption {
	return func(p *Printer) {
		p.historyLines = n
	}
}

func NewPrinter(frequency time.Duration, opts ...PrinterOption) *Printer {
	p := &Printer{
		frequency:    frequency,
		historyLines: 5,
		writer:       uilive.New(),
		doneCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Update records snap as the next frame to draw. It is safe to call from
// any goroutine.
func (p *Printer) Update(snap session.Snapshot) {
	frame := Frame(snap, p.historyLines)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = frame
	p.dirty = true
}

func (p *Printer) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

func (p *Printer) run(ctx context.Context) {
	defer close(p.stoppedCh)
	ticker := time.NewTicker(p.frequency)
	defer ticker.Stop()
	for {
		select {
		case <-p.doneCh:
			p.print()
			return
		case <-ctx.Done():
			p.print()
			return
		case <-ticker.C:
			p.print()
		}
	}
}

// Stop draws the last frame and returns once it has been written. A printer
// that was never started has nothing to wait for.
func (p *Printer) Stop() {
	p.stopOnce.Do(func() {
		close(p.doneCh)
	})
	started := true
	p.startOnce.Do(func() { started = false })
	if started {
		<-p.stoppedCh
	}
}

func (p *Printer) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return
	}
	fmt.Fprint(p.writer, p.frame)
	p.writer.Flush()
	p.dirty = false
}
