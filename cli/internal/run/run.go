// Package run implements the commit flow: build the prompt, pass the gate,
// ask the model, post-process the answer, let the user accept, pick or
// regenerate, then hand the final message to the committer.
//
// Only one model request is ever in flight; regenerations are sequential.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"ollacommit/cli/internal/commitmsg"
	"ollacommit/cli/internal/erruser"
	"ollacommit/cli/internal/filter"
	"ollacommit/cli/internal/ollama"
	"ollacommit/cli/internal/prompt"
	"ollacommit/cli/internal/trace"
)

// ExitTransport is the exit code for model server failures.
const ExitTransport = 2

var (
	// ErrEmptyDiff indicates nothing is staged.
	ErrEmptyDiff = errors.New("no staged changes")
	// ErrGateRejected indicates the pre-call filter vetoed the model request.
	ErrGateRejected = errors.New("request rejected by filter")
	// ErrDeclined indicates the user answered no to the proposed message.
	ErrDeclined = errors.New("commit declined by user")
	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("model returned an empty message")
)

// Generator sends one prompt to the model and returns the aggregated text.
type Generator interface {
	Send(ctx context.Context, req ollama.GenerateRequest, onMalformed ollama.MalformedFunc) (string, error)
}

// Gate vetoes model calls before they are sent.
type Gate interface {
	Allow(ctx context.Context, req filter.Request) (bool, error)
}

// Prompter collects the user's decision.
type Prompter interface {
	Confirm(ctx context.Context, question string, def bool) (bool, error)
	Select(ctx context.Context, title string, candidates []commitmsg.Candidate) (int, error)
}

// Committer receives the final message.
type Committer interface {
	Commit(ctx context.Context, message string) error
}

// Waiter shows progress while the model is working. Optional.
type Waiter interface {
	Start(message string)
	Stop()
}

// Options configures one invocation. Diff and Generation never change across
// regenerations.
type Options struct {
	Diff        string
	Generation  commitmsg.GenerationOptions
	Model       string
	Stream      bool
	Temperature *float64
	FilterFee   bool

	Generator Generator
	Gate      Gate // nil allows every call
	Prompter  Prompter
	Committer Committer
	Processor *commitmsg.Processor
	Waiter    Waiter
	Tracer    *trace.Tracer
	Out       io.Writer
	Log       zerolog.Logger
}

// Result describes a completed invocation.
type Result struct {
	Message     string
	Generations int
}

// Commit runs the flow until a message is committed or the invocation fails.
// Choosing the regenerate entry starts a fresh pass with a new model call;
// there is no limit on the number of passes. In list mode Force is ignored.
func Commit(ctx context.Context, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.Diff) == "" {
		return nil, erruser.New("No changes to commit 🙅\nMaybe you forgot to add the files? Try git add . and then run this again.", ErrEmptyDiff)
	}
	opts.Generation = opts.Generation.Normalized()
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Processor == nil {
		opts.Processor = &commitmsg.Processor{Log: opts.Log}
	}
	if opts.Generation.List && opts.Generation.Force {
		opts.Log.Debug().Msg("--force has no effect with --list; asking for a selection")
	}

	res := &Result{}
	for {
		candidates, err := propose(ctx, opts)
		if err != nil {
			return nil, err
		}
		res.Generations++

		message, regenerate, err := decide(ctx, opts, candidates)
		if err != nil {
			return nil, err
		}
		if regenerate {
			opts.Log.Debug().Int("generation", res.Generations).Msg("Regenerating commit messages")
			continue
		}
		if err := opts.Committer.Commit(ctx, message); err != nil {
			return nil, err
		}
		res.Message = message
		return res, nil
	}
}

// propose runs one pass: prompt, gate, model call, post-processing.
func propose(ctx context.Context, opts Options) ([]commitmsg.Candidate, error) {
	gen := opts.Generation
	text := prompt.Build(opts.Diff, gen, prompt.ModeFor(gen))
	opts.Tracer.Block("Prompt", text)

	if opts.Gate != nil {
		numCompletion := 1
		if gen.List {
			numCompletion = gen.NumOptions
		}
		ok, err := opts.Gate.Allow(ctx, filter.Request{Prompt: text, FilterFee: opts.FilterFee, NumCompletion: numCompletion})
		if err != nil {
			return nil, erruser.New("Could not confirm the request.", err)
		}
		if !ok {
			return nil, erruser.New("Request cancelled before contacting the model.", ErrGateRejected)
		}
	}

	raw, err := generate(ctx, opts, text)
	if err != nil {
		return nil, err
	}
	opts.Tracer.Block("Response", raw)
	if !gen.List && strings.TrimSpace(raw) == "" {
		return nil, erruser.WithCode(ExitTransport, "The model returned an empty commit message.", ErrEmptyResponse)
	}

	candidates, err := opts.Processor.PostProcess(ctx, raw, gen)
	if err != nil {
		return nil, erruser.New("Could not apply the commit template.", err)
	}
	return candidates, nil
}

func generate(ctx context.Context, opts Options, text string) (string, error) {
	req := ollama.GenerateRequest{Model: opts.Model, Prompt: text, Stream: opts.Stream}
	if opts.Temperature != nil {
		req.Options = &ollama.GenerateOptions{Temperature: *opts.Temperature}
	}
	opts.Tracer.Section("Request")
	opts.Tracer.Printf("model=%s stream=%t prompt_bytes=%d\n", req.Model, req.Stream, len(req.Prompt))
	if opts.Waiter != nil {
		opts.Waiter.Start("Sending prompt to Ollama...")
	}
	raw, err := opts.Generator.Send(ctx, req, func(line string, err error) {
		opts.Log.Warn().Err(err).Str("line", line).Msg("Skipping malformed stream fragment")
	})
	if opts.Waiter != nil {
		opts.Waiter.Stop()
	}
	if err != nil {
		return "", erruser.WithCode(ExitTransport, "Error communicating with Ollama.", err)
	}
	opts.Log.Debug().Int("bytes", len(raw)).Msg("Response received from Ollama")
	return raw, nil
}

// decide presents candidates and returns the message to commit, or
// regenerate=true when the user asked for a new pass.
func decide(ctx context.Context, opts Options, candidates []commitmsg.Candidate) (message string, regenerate bool, err error) {
	gen := opts.Generation
	if !gen.List {
		message = candidates[0].Text
		header := "Proposed Commit"
		if gen.Template != "" {
			header = "Proposed Commit With Template"
		}
		fmt.Fprintf(opts.Out, "%s:\n------------------------------\n%s\n------------------------------\n", header, message)
		if gen.Force {
			return message, false, nil
		}
		ok, err := opts.Prompter.Confirm(ctx, "Do you want to continue?", true)
		if err != nil {
			return "", false, erruser.New("Could not read your answer.", err)
		}
		if !ok {
			return "", false, erruser.New("Commit aborted by user 🙅‍♂️", ErrDeclined)
		}
		return message, false, nil
	}

	idx, err := opts.Prompter.Select(ctx, "Select a commit message", candidates)
	if err != nil {
		return "", false, erruser.New("Could not read your selection.", err)
	}
	if idx < 0 || idx >= len(candidates) {
		return "", false, erruser.New("Invalid selection.", fmt.Errorf("index %d out of range [0,%d)", idx, len(candidates)))
	}
	chosen := candidates[idx]
	if chosen.IsRegenerate() {
		return "", true, nil
	}
	return chosen.Text, false, nil
}
