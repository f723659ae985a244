package trace

import (
	"bytes"
	"testing"
)

func TestEnabled(t *testing.T) {
	var nilTracer *Tracer
	if nilTracer.Enabled() {
		t.Error("nil *Tracer Enabled() = true")
	}
	if New(nil).Enabled() {
		t.Error("New(nil).Enabled() = true")
	}
	var buf bytes.Buffer
	if !New(&buf).Enabled() {
		t.Error("New(&buf).Enabled() = false")
	}
}

func TestSection_writesHeader(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Section("Prompt")
	want := "\n[ollacommit:trace] === Prompt ===\n"
	if got := buf.String(); got != want {
		t.Errorf("Section wrote %q, want %q", got, want)
	}
}

func TestBlock_addsTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Block("Response", "feat: x")
	want := "\n[ollacommit:trace] === Response ===\nfeat: x\n"
	if got := buf.String(); got != want {
		t.Errorf("Block wrote %q, want %q", got, want)
	}
}

func TestNilWriter_noPanic(t *testing.T) {
	tr := New(nil)
	tr.Section("x")
	tr.Printf("%d\n", 1)
	tr.Block("x", "y")
}
