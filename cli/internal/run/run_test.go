package run

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"ollacommit/cli/internal/commitmsg"
	"ollacommit/cli/internal/erruser"
	"ollacommit/cli/internal/filter"
	"ollacommit/cli/internal/ollama"
	"ollacommit/cli/internal/trace"
)

const testDiff = "diff --git a/a.go b/a.go\n+package a\n"

type fakeGenerator struct {
	responses []string
	err       error
	prompts   []string
	reqs      []ollama.GenerateRequest
}

func (g *fakeGenerator) Send(_ context.Context, req ollama.GenerateRequest, _ ollama.MalformedFunc) (string, error) {
	g.prompts = append(g.prompts, req.Prompt)
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return "", g.err
	}
	i := len(g.prompts) - 1
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	return g.responses[i], nil
}

type fakePrompter struct {
	confirms   []bool
	selections []int
	confirmed  int
	selected   int
	menus      [][]commitmsg.Candidate
}

func (p *fakePrompter) Confirm(context.Context, string, bool) (bool, error) {
	if p.confirmed >= len(p.confirms) {
		return false, errors.New("unexpected confirm")
	}
	a := p.confirms[p.confirmed]
	p.confirmed++
	return a, nil
}

func (p *fakePrompter) Select(_ context.Context, _ string, c []commitmsg.Candidate) (int, error) {
	if p.selected >= len(p.selections) {
		return 0, errors.New("unexpected select")
	}
	p.menus = append(p.menus, c)
	s := p.selections[p.selected]
	p.selected++
	return s, nil
}

type fakeCommitter struct {
	messages []string
	err      error
}

func (c *fakeCommitter) Commit(_ context.Context, msg string) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, msg)
	return nil
}

type gateFunc func(filter.Request) bool

func (g gateFunc) Allow(_ context.Context, r filter.Request) (bool, error) { return g(r), nil }

type fakeWaiter struct{ starts, stops int }

func (w *fakeWaiter) Start(string) { w.starts++ }
func (w *fakeWaiter) Stop()        { w.stops++ }

func baseOptions(gen *fakeGenerator, p *fakePrompter, c *fakeCommitter, g commitmsg.GenerationOptions) Options {
	return Options{
		Diff:       testDiff,
		Generation: g,
		Model:      "m",
		Stream:     true,
		Generator:  gen,
		Prompter:   p,
		Committer:  c,
		Processor: &commitmsg.Processor{
			Branch: func(context.Context) (string, error) { return "main", nil },
			Log:    zerolog.Nop(),
		},
		Log: zerolog.Nop(),
	}
}

func TestCommit_singleForce_oneCallOneCommit(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"feat: x"}}
	p := &fakePrompter{}
	c := &fakeCommitter{}
	var out bytes.Buffer
	opts := baseOptions(gen, p, c, commitmsg.GenerationOptions{Force: true, Template: "{COMMIT_MESSAGE} on {GIT_BRANCH}"})
	opts.Out = &out

	res, err := Commit(context.Background(), opts)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("model calls = %d, want 1", len(gen.prompts))
	}
	if diff := cmp.Diff([]string{"feat: x on main"}, c.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if p.confirmed != 0 || p.selected != 0 {
		t.Error("force should not prompt")
	}
	if res.Message != "feat: x on main" || res.Generations != 1 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(out.String(), "Proposed Commit With Template:") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCommit_singleConfirmYes(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"  fix: y \n"}}
	p := &fakePrompter{confirms: []bool{true}}
	c := &fakeCommitter{}
	if _, err := Commit(context.Background(), baseOptions(gen, p, c, commitmsg.GenerationOptions{})); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if diff := cmp.Diff([]string{"fix: y"}, c.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
}

func TestCommit_singleConfirmNo_declined(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"fix: y"}}
	c := &fakeCommitter{}
	_, err := Commit(context.Background(), baseOptions(gen, &fakePrompter{confirms: []bool{false}}, c, commitmsg.GenerationOptions{}))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v, want ErrDeclined", err)
	}
	if erruser.ExitCode(err) == 0 {
		t.Error("decline must exit non-zero")
	}
	if len(c.messages) != 0 {
		t.Errorf("commits = %v, want none", c.messages)
	}
}

func TestCommit_listSelectsCandidate(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"a: x;b: y;c: z"}}
	p := &fakePrompter{selections: []int{1}}
	c := &fakeCommitter{}
	if _, err := Commit(context.Background(), baseOptions(gen, p, c, commitmsg.GenerationOptions{List: true, NumOptions: 3})); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	want := []commitmsg.Candidate{
		commitmsg.Message("a: x"), commitmsg.Message("b: y"), commitmsg.Message("c: z"), commitmsg.Regenerate(),
	}
	if diff := cmp.Diff(want, p.menus[0]); diff != "" {
		t.Errorf("menu mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b: y"}, c.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
}

func TestCommit_listRegenerate_oneMoreCallSentinelNeverCommitted(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"a: x;b: y", "c: z;d: w"}}
	p := &fakePrompter{selections: []int{2, 0}}
	c := &fakeCommitter{}
	opts := baseOptions(gen, p, c, commitmsg.GenerationOptions{List: true, NumOptions: 2})
	res, err := Commit(context.Background(), opts)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(gen.prompts))
	}
	if gen.prompts[0] != gen.prompts[1] {
		t.Error("regenerate should rebuild the same prompt from the same diff and options")
	}
	if diff := cmp.Diff([]string{"c: z"}, c.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if res.Generations != 2 {
		t.Errorf("Generations = %d, want 2", res.Generations)
	}
}

func TestCommit_listIgnoresForce(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"a: x;b: y"}}
	p := &fakePrompter{selections: []int{0}}
	c := &fakeCommitter{}
	if _, err := Commit(context.Background(), baseOptions(gen, p, c, commitmsg.GenerationOptions{List: true, Force: true, NumOptions: 2})); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if p.selected != 1 {
		t.Errorf("selections = %d, want 1 (list mode always asks)", p.selected)
	}
}

func TestCommit_emptyDiff_noModelCall(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"feat: x"}}
	c := &fakeCommitter{}
	opts := baseOptions(gen, &fakePrompter{}, c, commitmsg.GenerationOptions{Force: true})
	opts.Diff = ""
	_, err := Commit(context.Background(), opts)
	if !errors.Is(err, ErrEmptyDiff) {
		t.Fatalf("err = %v, want ErrEmptyDiff", err)
	}
	if erruser.ExitCode(err) == 0 {
		t.Error("empty diff must exit non-zero")
	}
	if len(gen.prompts) != 0 || len(c.messages) != 0 {
		t.Errorf("calls = %d, commits = %d; want 0, 0", len(gen.prompts), len(c.messages))
	}
}

func TestCommit_gateRejects_noModelCall(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"feat: x"}}
	c := &fakeCommitter{}
	opts := baseOptions(gen, &fakePrompter{}, c, commitmsg.GenerationOptions{List: true, NumOptions: 4})
	var seen filter.Request
	opts.Gate = gateFunc(func(r filter.Request) bool { seen = r; return false })
	opts.FilterFee = true
	_, err := Commit(context.Background(), opts)
	if !errors.Is(err, ErrGateRejected) {
		t.Fatalf("err = %v, want ErrGateRejected", err)
	}
	if len(gen.prompts) != 0 || len(c.messages) != 0 {
		t.Error("gate rejection must not call the model or commit")
	}
	if seen.NumCompletion != 4 || !seen.FilterFee || !strings.HasSuffix(seen.Prompt, testDiff) {
		t.Errorf("gate request = %+v", seen)
	}
}

func TestCommit_transportError_exitCodeAndNoCommit(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{err: ollama.ErrUnreachable}
	c := &fakeCommitter{}
	w := &fakeWaiter{}
	opts := baseOptions(gen, &fakePrompter{}, c, commitmsg.GenerationOptions{Force: true})
	opts.Waiter = w
	_, err := Commit(context.Background(), opts)
	if !errors.Is(err, ollama.ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
	if erruser.ExitCode(err) != ExitTransport {
		t.Errorf("exit code = %d, want %d", erruser.ExitCode(err), ExitTransport)
	}
	if len(c.messages) != 0 {
		t.Error("transport failure must not commit")
	}
	if w.starts != 1 || w.stops != 1 {
		t.Errorf("waiter start/stop = %d/%d, want 1/1", w.starts, w.stops)
	}
}

func TestCommit_emptySingleResponse(t *testing.T) {
	t.Parallel()
	for _, gopts := range []commitmsg.GenerationOptions{
		{Force: true},
		{Force: true, Emoji: true, Template: "{COMMIT_MESSAGE} (wip)"},
	} {
		gen := &fakeGenerator{responses: []string{"   "}}
		c := &fakeCommitter{}
		_, err := Commit(context.Background(), baseOptions(gen, &fakePrompter{}, c, gopts))
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("%+v: err = %v, want ErrEmptyResponse", gopts, err)
		}
		if len(c.messages) != 0 {
			t.Errorf("%+v: empty response must not commit", gopts)
		}
	}
}

func TestCommit_commitFailurePropagates(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("hook rejected")
	gen := &fakeGenerator{responses: []string{"feat: x"}}
	c := &fakeCommitter{err: wantErr}
	_, err := Commit(context.Background(), baseOptions(gen, &fakePrompter{}, c, commitmsg.GenerationOptions{Force: true}))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestCommit_invalidSelection(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"a: x"}}
	c := &fakeCommitter{}
	_, err := Commit(context.Background(), baseOptions(gen, &fakePrompter{selections: []int{7}}, c, commitmsg.GenerationOptions{List: true}))
	if err == nil || len(c.messages) != 0 {
		t.Fatalf("err = %v, commits = %v", err, c.messages)
	}
}

func TestCommit_requestCarriesModelStreamTemperature(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{responses: []string{"feat: x"}}
	opts := baseOptions(gen, &fakePrompter{}, &fakeCommitter{}, commitmsg.GenerationOptions{Force: true})
	temp := 0.3
	opts.Temperature = &temp
	opts.Stream = false
	var traceBuf bytes.Buffer
	opts.Tracer = trace.New(&traceBuf)
	if _, err := Commit(context.Background(), opts); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	req := gen.reqs[0]
	if req.Model != "m" || req.Stream || req.Options == nil || req.Options.Temperature != 0.3 {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(traceBuf.String(), "=== Request ===") || !strings.Contains(traceBuf.String(), "model=m stream=false prompt_bytes=") {
		t.Errorf("trace missing request summary: %q", traceBuf.String())
	}
	if !strings.Contains(traceBuf.String(), "=== Prompt ===") || !strings.Contains(traceBuf.String(), "=== Response ===") {
		t.Errorf("trace = %q", traceBuf.String())
	}
}

func TestCommit_withOllamaClient_streamed(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":"feat"}`+"\n"+`oops`+"\n"+`{"response":": a;fix: b"}`+"\n"+`{"response":"","done":true}`+"\n")
	}))
	defer srv.Close()

	var logBuf bytes.Buffer
	p := &fakePrompter{selections: []int{1}}
	c := &fakeCommitter{}
	opts := baseOptions(nil, p, c, commitmsg.GenerationOptions{List: true, NumOptions: 2})
	opts.Generator = ollama.NewClient(srv.URL, srv.Client())
	opts.Log = zerolog.New(&logBuf)
	if _, err := Commit(context.Background(), opts); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if diff := cmp.Diff([]string{"fix: b"}, c.messages); diff != "" {
		t.Errorf("commits mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logBuf.String(), "malformed") {
		t.Errorf("want malformed-fragment warning, log = %q", logBuf.String())
	}
}

func TestCommit_withOllamaClient_connectionRefused(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	c := &fakeCommitter{}
	opts := baseOptions(nil, &fakePrompter{}, c, commitmsg.GenerationOptions{Force: true})
	opts.Generator = ollama.NewClient("http://"+addr, &http.Client{Transport: &http.Transport{}})
	_, err = Commit(context.Background(), opts)
	if !errors.Is(err, ollama.ErrUnreachable) || erruser.ExitCode(err) == 0 {
		t.Fatalf("err = %v (exit %d), want ErrUnreachable non-zero", err, erruser.ExitCode(err))
	}
	if len(c.messages) != 0 {
		t.Error("must not commit")
	}
}

func TestAnnounce(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	inner := &fakeCommitter{}
	if err := Announce(inner, &out, "before", "after").Commit(context.Background(), "m"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "before\nafter\n" {
		t.Errorf("out = %q", out.String())
	}

	out.Reset()
	failing := &fakeCommitter{err: errors.New("x")}
	if err := Announce(failing, &out, "", "after").Commit(context.Background(), "m"); err == nil {
		t.Fatal("want error")
	}
	if out.String() != "" {
		t.Errorf("out after failure = %q", out.String())
	}
}
