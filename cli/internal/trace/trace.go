// Package trace writes the prompt and raw model output to stderr when --trace
// is set. All methods are no-ops when the writer is nil.
package trace

import (
	"fmt"
	"io"
	"strings"
)

const prefix = "[ollacommit:trace]"

// Tracer writes sectioned trace output.
type Tracer struct {
	w io.Writer
}

// New returns a Tracer that writes to w. If w is nil, all methods no-op.
func New(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Enabled returns true if the tracer has a non-nil writer.
func (t *Tracer) Enabled() bool {
	return t != nil && t.w != nil
}

// Section writes a section header.
func (t *Tracer) Section(name string) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, "\n%s === %s ===\n", prefix, name)
}

// Printf writes to the trace writer when enabled.
func (t *Tracer) Printf(format string, args ...interface{}) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, format, args...)
}

// Block writes a section header followed by body, ensuring a trailing newline.
func (t *Tracer) Block(name, body string) {
	if !t.Enabled() {
		return
	}
	t.Section(name)
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	io.WriteString(t.w, body)
}
