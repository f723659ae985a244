// Package filter is the pre-call gate: it refuses prompts that cannot fit the
// model's context and, when asked, shows the estimated fee and lets the user
// back out before any request is sent.
package filter

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"ollacommit/cli/internal/tokens"
)

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string, def bool) (bool, error)
}

// Request describes one intended model call.
type Request struct {
	Prompt        string
	FilterFee     bool
	NumCompletion int
}

// Filter decides whether a model call may proceed.
// ContextLimit <= 0 disables the size check.
type Filter struct {
	ContextLimit  int
	WarnThreshold float64
	FeePer1K      float64
	Confirm       Confirmer
	Out           io.Writer
	Log           zerolog.Logger
}

// Allow reports whether the call described by req may be issued. An error is
// returned only when the confirmation prompt itself fails.
func (f *Filter) Allow(ctx context.Context, req Request) (bool, error) {
	promptTokens := tokens.Estimate(req.Prompt)
	total := tokens.Total(promptTokens, req.NumCompletion)
	f.Log.Debug().Int("prompt_tokens", promptTokens).Int("total_tokens", total).Msg("Estimated request size")

	if f.ContextLimit > 0 && total > f.ContextLimit {
		f.printf("The staged diff is too large for the model context (~%d tokens, limit %d). Stage fewer changes and try again.\n",
			total, f.ContextLimit)
		return false, nil
	}
	if warn := tokens.WarnIfOver(total, f.ContextLimit, f.WarnThreshold); warn != "" {
		f.Log.Warn().Msg(warn)
	}
	if !req.FilterFee {
		return true, nil
	}
	fee := tokens.Fee(promptTokens, req.NumCompletion, f.FeePer1K)
	f.printf("This will cost you ~$%.3f for using the API.\n", fee)
	if f.Confirm == nil {
		return false, nil
	}
	return f.Confirm.Confirm(ctx, "Do you want to continue 💸?", true)
}

func (f *Filter) printf(format string, args ...interface{}) {
	if f.Out == nil {
		return
	}
	fmt.Fprintf(f.Out, format, args...)
}
