package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GenerateOptions are model runtime options passed to /api/generate.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

// GenerateResult is an atomic response, or one line of a streamed response.
// The count and duration fields are filled only on the final (done) object.
type GenerateResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`

	TotalDuration      int64 `json:"total_duration"`       // nanoseconds
	LoadDuration       int64 `json:"load_duration"`        // nanoseconds
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"` // nanoseconds
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"` // nanoseconds
}

// Fragment is the parse result of one streamed line, delivered in arrival order.
// Exactly one of the following holds: ParseErr is set (Line could not be
// decoded; recoverable), Err is set (the stream failed; always the last
// fragment), or Text carries the decoded response text.
type Fragment struct {
	Text     string
	Done     bool
	Line     string
	ParseErr error
	Err      error
}

func (c *Client) post(ctx context.Context, req GenerateRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: encode request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama generate request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", errors.Join(ErrUnreachable, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError("ollama generate", resp)
	}
	return resp, nil
}

// Generate sends req with streaming disabled and returns the complete response.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req.Stream = false
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var res GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("ollama generate: parse response: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("ollama generate: %w: %s", ErrStream, res.Error)
	}
	return &res, nil
}

// GenerateStream sends req with streaming enabled. Request-level failures are
// returned directly; afterwards every newline-delimited line of the body is
// delivered as one Fragment. The channel is closed at end of stream, after a
// fatal Fragment, or when ctx is done.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan Fragment, error) {
	req.Stream = true
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan Fragment)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		readFragments(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// readFragments splits r into lines; a line may span reads and a read may hold
// several lines. A final line without trailing newline is still delivered.
func readFragments(ctx context.Context, r io.Reader, ch chan<- Fragment) {
	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			f := parseFragment(trimmed)
			if !sendFragment(ctx, ch, f) || f.Err != nil {
				return
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				sendFragment(ctx, ch, Fragment{Err: fmt.Errorf("ollama generate: %w: %w", ErrStream, readErr)})
			}
			return
		}
	}
}

func parseFragment(line []byte) Fragment {
	var res GenerateResult
	if err := json.Unmarshal(line, &res); err != nil {
		return Fragment{Line: string(line), ParseErr: err}
	}
	if res.Error != "" {
		return Fragment{Line: string(line), Err: fmt.Errorf("ollama generate: %w: %s", ErrStream, res.Error)}
	}
	return Fragment{Text: res.Response, Done: res.Done, Line: string(line)}
}

func sendFragment(ctx context.Context, ch chan<- Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// MalformedFunc is told about each streamed line that could not be decoded.
type MalformedFunc func(line string, err error)

// Collect folds fragments into the aggregate response: the trimmed
// concatenation, in arrival order, of every decoded fragment's text. Malformed
// lines are reported to onMalformed (may be nil) and contribute nothing.
// The first fatal fragment ends the fold with its error.
func Collect(ctx context.Context, ch <-chan Fragment, onMalformed MalformedFunc) (string, error) {
	var b strings.Builder
	for f := range ch {
		switch {
		case f.Err != nil:
			if err := ctx.Err(); err != nil {
				return "", fmt.Errorf("ollama generate: %w", err)
			}
			return "", f.Err
		case f.ParseErr != nil:
			if onMalformed != nil {
				onMalformed(f.Line, f.ParseErr)
			}
		default:
			b.WriteString(f.Text)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Send returns the trimmed completion for req, streamed when req.Stream is set
// and atomic otherwise. Nothing is retried.
func (c *Client) Send(ctx context.Context, req GenerateRequest, onMalformed MalformedFunc) (string, error) {
	if !req.Stream {
		res, err := c.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(res.Response), nil
	}
	ch, err := c.GenerateStream(ctx, req)
	if err != nil {
		return "", err
	}
	return Collect(ctx, ch, onMalformed)
}
