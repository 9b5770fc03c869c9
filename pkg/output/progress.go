package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/sambabib/depfresh/pkg/analyzer"
)

var dimStyle = lipgloss.NewStyle().Faint(true)

// Progress renders pool events as a single status line that is rewritten in
// place. It writes nothing unless live is set, so redirected output stays clean.
type Progress struct {
	w     io.Writer
	live  bool
	done  int
	total int
	shown bool
}

// NewProgress creates a progress reporter writing to w.
func NewProgress(w io.Writer, live bool) *Progress {
	return &Progress{w: w, live: live}
}

// Observe consumes a pool event. It is meant to be passed as analyzer.PoolOptions.Observer.
func (p *Progress) Observe(ev analyzer.Event) {
	p.total = ev.Total
	if ev.Kind == analyzer.EventCompleted {
		p.done = ev.Done
	}
	if !p.live {
		return
	}
	fmt.Fprintf(p.w, "\r\x1b[2K%s %s %s",
		dimStyle.Render(fmt.Sprintf("[%d/%d]", p.done, p.total)),
		dimStyle.Render("Checking"),
		ev.Request.Name)
	p.shown = true
}

// Done returns how many lookups have completed.
func (p *Progress) Done() int {
	return p.done
}

// Finish clears the status line.
func (p *Progress) Finish() {
	if p.live && p.shown {
		fmt.Fprint(p.w, "\r\x1b[2K")
		p.shown = false
	}
}
