package tui

import (
	"context"
	"io"

	"ollacommit/cli/internal/commitmsg"
)

// Interactive is satisfied by Prompter and LinePrompter.
type Interactive interface {
	Confirm(ctx context.Context, question string, def bool) (bool, error)
	Select(ctx context.Context, title string, candidates []commitmsg.Candidate) (int, error)
}

// NewPrompter returns the Bubble Tea prompter on a terminal and a
// LinePrompter over in/out otherwise.
func NewPrompter(in io.Reader, out io.Writer) Interactive {
	if IsTTY() {
		return Prompter{}
	}
	return NewLinePrompter(in, out)
}
