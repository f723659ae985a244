package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunCLI_helpAndVersion(t *testing.T) {
	t.Parallel()
	if got := runCLI([]string{"--help"}); got != 0 {
		t.Errorf("runCLI(--help) = %d, want 0", got)
	}
	if got := runCLI([]string{"--version"}); got != 0 {
		t.Errorf("runCLI(--version) = %d, want 0", got)
	}
}

func TestRunCLI_unknownFlag(t *testing.T) {
	t.Parallel()
	if got := runCLI([]string{"--no-such-flag"}); got != 1 {
		t.Errorf("runCLI(--no-such-flag) = %d, want 1", got)
	}
}

func TestRunCLI_doctor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{name: "ok", status: http.StatusOK, body: `{"models":[{"name":"tiny:1b"}]}`, want: 0},
		{name: "model_missing", status: http.StatusOK, body: `{"models":[{"name":"other"}]}`, want: 1},
		{name: "server_error", status: http.StatusInternalServerError, body: `{"error":"boom"}`, want: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					http.NotFound(w, r)
					return
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			got := runCLI([]string{"doctor", "--model", "tiny:1b", "--ollama-base-url", srv.URL})
			if got != tt.want {
				t.Errorf("doctor exit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverridesFromFlags(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"-l", "german", "--stream=false", "-n", "3", "--list", "-m", "tiny:1b", "--timeout", "90s"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	o := overridesFromFlags(cmd)
	if o.Language == nil || *o.Language != "german" {
		t.Errorf("Language = %v, want german", o.Language)
	}
	if o.Stream == nil || *o.Stream {
		t.Errorf("Stream = %v, want false", o.Stream)
	}
	if o.NumOptions == nil || *o.NumOptions != 3 {
		t.Errorf("NumOptions = %v, want 3", o.NumOptions)
	}
	if o.List == nil || !*o.List {
		t.Errorf("List = %v, want true", o.List)
	}
	if o.Model == nil || *o.Model != "tiny:1b" {
		t.Errorf("Model = %v, want tiny:1b", o.Model)
	}
	if o.Timeout == nil || *o.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", o.Timeout)
	}
	if o.Force != nil || o.Emoji != nil || o.Template != nil {
		t.Errorf("unset flags produced overrides: %+v", o)
	}
}

func TestNewLogger_level(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if got := newLogger(&buf, false).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}
	if got := newLogger(&buf, true).GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", got)
	}
}

func TestRunCLI_doctorBenchmark(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"tiny:1b"}]}`))
		case "/api/generate":
			_, _ = w.Write([]byte(`{"model":"tiny:1b","response":"fix: x","done":true,"eval_count":10,"eval_duration":1000000000}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	if got := runCLI([]string{"doctor", "--benchmark", "-m", "tiny:1b", "--ollama-base-url", srv.URL}); got != 0 {
		t.Errorf("doctor --benchmark exit = %d, want 0", got)
	}
}
