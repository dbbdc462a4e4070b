package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/user/webmio/pkg/ports"
)

// consoleProgress draws a percentage on stderr when it is a terminal.
type consoleProgress struct {
	out     io.Writer
	enabled bool
	last    int
}

func newConsoleProgress(quiet bool) *consoleProgress {
	fd := os.Stderr.Fd()
	return &consoleProgress{
		out:     os.Stderr,
		enabled: !quiet && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
		last:    -1,
	}
}

func (p *consoleProgress) ReportProgress(fraction float64) ports.ProgressStatus {
	pct := int(fraction * 100)
	if p.enabled && pct != p.last {
		fmt.Fprintf(p.out, "\r%3d%%", pct)
		if pct >= 100 {
			fmt.Fprintln(p.out)
		}
	}
	p.last = pct
	return ports.ProgressContinue
}

func (p *consoleProgress) WaitForResume(ctx context.Context) error {
	return nil
}

var _ ports.ProgressReporter = (*consoleProgress)(nil)
