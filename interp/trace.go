package interp

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Tracer implements [Logger] for `set -x`/`set -v` diagnostics, coloring
// the "+ " prefix the way an interactive bash's xtrace output is commonly
// themed in CI logs. Color is disabled automatically when w isn't a
// terminal, so redirected/piped output stays plain text.
type Tracer struct {
	w      io.Writer
	prefix *color.Color
}

// NewTracer builds a [Tracer] writing to w. forceColor bypasses the
// terminal autodetection, mainly for tests that want deterministic
// output either way.
func NewTracer(w io.Writer, forceColor bool) *Tracer {
	c := color.New(color.FgYellow)
	if f, ok := w.(*os.File); ok {
		c.EnableColor()
		if !forceColor && !isTerminalFile(f) {
			c.DisableColor()
		}
	} else if !forceColor {
		c.DisableColor()
	}
	return &Tracer{w: w, prefix: c}
}

func (t *Tracer) Trace(line string) {
	t.prefix.Fprint(t.w, "+ ")
	fmt.Fprintln(t.w, line)
}

func isTerminalFile(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
