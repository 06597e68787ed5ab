package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Progress renders percentage progress callbacks as a terminal bar.
type Progress struct {
	mu     sync.Mutex
	writer io.Writer
	last   int
}

// NewProgress creates a progress renderer writing to w. If w is nil, it
// defaults to os.Stderr.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{writer: w}
}

// Report is an events.ProgressFunc: it redraws the bar for the given
// percentage and message.
func (p *Progress) Report(pct int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct

	barWidth := 30
	filled := barWidth * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\r[%s] %3d%% %-40s", bar, pct, message)
}

// Done finishes the bar with a newline.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.writer)
}

// Fail reports an error below the bar.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "\n✗ %v\n", err)
}
