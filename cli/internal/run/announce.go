package run

import (
	"context"
	"fmt"
	"io"
)

type announcer struct {
	next   Committer
	out    io.Writer
	before string
	after  string
}

// Announce wraps c so before is printed ahead of the commit and after once it
// succeeded. Empty strings are skipped.
func Announce(c Committer, out io.Writer, before, after string) Committer {
	return &announcer{next: c, out: out, before: before, after: after}
}

func (a *announcer) Commit(ctx context.Context, message string) error {
	if a.before != "" {
		fmt.Fprintln(a.out, a.before)
	}
	if err := a.next.Commit(ctx, message); err != nil {
		return err
	}
	if a.after != "" {
		fmt.Fprintln(a.out, a.after)
	}
	return nil
}
