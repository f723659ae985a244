package commitmsg

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	messagePlaceholder = "{COMMIT_MESSAGE}"
	branchPlaceholder  = "{GIT_BRANCH}"
)

// BranchFunc returns the current git branch name.
type BranchFunc func(ctx context.Context) (string, error)

// Processor turns raw model output into candidates. Branch is consulted only
// when a templated message contains {GIT_BRANCH}, at most once per call.
type Processor struct {
	Branch BranchFunc
	Log    zerolog.Logger
}

// PostProcess splits, trims and transforms raw according to opts. In list
// mode the result ends with exactly one regenerate candidate.
//
// Transforms run in order: emoji, then template. A template without
// {COMMIT_MESSAGE} is ignored with a warning. The only error is a failed
// branch lookup.
func (p *Processor) PostProcess(ctx context.Context, raw string, opts GenerationOptions) ([]Candidate, error) {
	msgs := Split(raw, opts.List)
	if opts.Emoji {
		for i, m := range msgs {
			msgs[i] = WithEmoji(m)
		}
	}
	if opts.Template != "" {
		var err error
		msgs, err = p.applyTemplate(ctx, opts.Template, msgs)
		if err != nil {
			return nil, err
		}
	}
	out := make([]Candidate, 0, len(msgs)+1)
	for _, m := range msgs {
		out = append(out, Message(m))
	}
	if opts.List {
		out = append(out, Regenerate())
	}
	return out, nil
}

// Split returns the messages in raw. Single mode yields the whole trimmed text.
// List mode splits on Delimiter and trims each piece, skipping pieces that are
// empty after trimming; order is preserved.
func Split(raw string, list bool) []string {
	if !list {
		return []string{strings.TrimSpace(raw)}
	}
	parts := strings.Split(raw, Delimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (p *Processor) applyTemplate(ctx context.Context, template string, msgs []string) ([]string, error) {
	if !strings.Contains(template, messagePlaceholder) {
		p.Log.Warn().Str("template", template).Msg("Template does not include " + messagePlaceholder + "; ignoring it")
		return msgs, nil
	}
	var (
		branch    string
		hasBranch bool
	)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		s := strings.ReplaceAll(template, messagePlaceholder, m)
		if strings.Contains(s, branchPlaceholder) {
			if !hasBranch {
				b, err := p.lookupBranch(ctx)
				if err != nil {
					return nil, err
				}
				branch, hasBranch = b, true
			}
			s = strings.ReplaceAll(s, branchPlaceholder, branch)
		}
		out[i] = s
	}
	return out, nil
}

func (p *Processor) lookupBranch(ctx context.Context) (string, error) {
	if p.Branch == nil {
		return "", fmt.Errorf("commitmsg: message uses %s but no branch lookup is configured", branchPlaceholder)
	}
	b, err := p.Branch(ctx)
	if err != nil {
		return "", err
	}
	p.Log.Debug().Str("branch", b).Msg("Using current branch in template")
	return b, nil
}
