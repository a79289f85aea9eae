// Package linear prints job output line by line in the order it arrives.
package linear

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/mk/internal/ui/output"
	"go.trai.ch/mk/internal/ui/style"
)

// Renderer implements ports.Renderer. With banners enabled, output of a job
// that follows output of another job is introduced by "--- target ---".
type Renderer struct {
	w       io.Writer
	out     *termenv.Output
	banners bool

	mu   sync.Mutex
	jobs map[int]string
	last int
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer creates a Renderer writing to w, or stdout when w is nil. tty
// selects the interactive color profile.
func NewRenderer(w io.Writer, tty, banners bool) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	return &Renderer{
		w:       w,
		out:     output.ForTerminal(w, tty),
		banners: banners,
		jobs:    make(map[int]string),
	}
}

// OnJobStart registers the target of a job.
func (r *Renderer) OnJobStart(id int, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = target
}

// OnJobLine prints one line of job output.
func (r *Renderer) OnJobLine(id int, line []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.banners && id != r.last {
		if name, ok := r.jobs[id]; ok {
			banner := fmt.Sprintf("%s %s %s", style.BannerRule, name, style.BannerRule)
			_, _ = fmt.Fprintln(r.w, r.out.String(banner).Faint().String())
		}
		r.last = id
	}
	_, _ = fmt.Fprintln(r.w, string(line))
}

// OnJobComplete forgets a finished job.
func (r *Renderer) OnJobComplete(id int, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// OnMessage prints a line that belongs to no job. Error lines are shown in
// red.
func (r *Renderer) OnMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = 0
	if strings.HasPrefix(msg, "***") {
		msg = r.out.String(msg).Foreground(termenv.RGBColor(string(style.Red))).String()
	}
	_, _ = fmt.Fprintln(r.w, msg)
}

// Stop does nothing: lines are written as soon as they complete.
func (r *Renderer) Stop() error {
	return nil
}
