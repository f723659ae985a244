package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"ollacommit/cli/internal/commitmsg"
)

// LinePrompter asks questions on plain streams, one answer per line. It is
// used when no terminal is attached (pipes, CI, editors). Reads happen on a
// background goroutine so a cancelled context ends a pending prompt.
type LinePrompter struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewLinePrompter reads answers from in and writes questions to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out, lines: make(chan lineResult)}
}

// readLoop delivers input lines until the reader fails, then closes lines.
// A final line without newline is still delivered.
func (p *LinePrompter) readLoop() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if line != "" && (err == nil || err == io.EOF) {
			p.lines <- lineResult{line: strings.TrimSpace(line)}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			p.lines <- lineResult{err: err}
			return
		}
	}
}

// readLine waits for the next line or for ctx to be done.
func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() { go p.readLoop() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-p.lines:
		if !ok {
			return "", fmt.Errorf("%w: no answer on input", ErrInterrupted)
		}
		return res.line, res.err
	}
}

// Confirm asks until it reads y/yes, n/no, or an empty line (def).
func (p *LinePrompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "? %s %s ", question, hint)
		line, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// Select prints a numbered menu and asks until it reads a valid number.
func (p *LinePrompter) Select(ctx context.Context, title string, candidates []commitmsg.Candidate) (int, error) {
	fmt.Fprintf(p.out, "? %s\n", title)
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c.Label())
	}
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		fmt.Fprintf(p.out, "Enter a number [1-%d]: ", len(candidates))
		line, err := p.readLine(ctx)
		if err != nil {
			return -1, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(candidates) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, "Invalid choice.")
	}
}
