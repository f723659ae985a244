// Package ollama provides an HTTP client for the Ollama API: text generation
// (atomic or streamed NDJSON) and the model list used by doctor.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ollacommit/cli/internal/version"
)

// DefaultBaseURL is the local Ollama server.
const DefaultBaseURL = "http://127.0.0.1:11434"

const _checkTimeout = 10 * time.Second

var (
	// ErrUnreachable indicates the server could not be reached (connection refused or non-2xx).
	ErrUnreachable = errors.New("ollama server unreachable")
	// ErrBadRequest indicates the server rejected the request (HTTP 400).
	ErrBadRequest = errors.New("ollama bad request")
	// ErrStream indicates the response stream failed after it started.
	ErrStream = errors.New("ollama stream failed")
)

// Client calls the Ollama API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// CheckResult is the result of a health/model check.
type CheckResult struct {
	Reachable    bool     // Server responded with 200.
	ModelPresent bool     // Requested model name appears in the tags list.
	ModelNames   []string // All model names from /api/tags (for diagnostics).
}

// NewClient builds a client. baseURL is the API root (e.g. http://127.0.0.1:11434);
// empty means DefaultBaseURL. If httpClient is nil, a client without timeout is
// used so long generations are never cut off.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// WithAPIKey returns a copy of c that sends key as a bearer token.
func (c *Client) WithAPIKey(key string) *Client {
	cp := *c
	cp.apiKey = key
	return &cp
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// statusError maps a non-2xx response to ErrBadRequest or ErrUnreachable,
// including the server's error text when it sends one.
func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(snippet))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(snippet, &body) == nil && body.Error != "" {
		detail = body.Error
	}
	sentinel := ErrUnreachable
	if resp.StatusCode == http.StatusBadRequest {
		sentinel = ErrBadRequest
	}
	if detail == "" {
		return fmt.Errorf("%s: %w: HTTP %d", op, sentinel, resp.StatusCode)
	}
	return fmt.Errorf("%s: %w: HTTP %d: %s", op, sentinel, resp.StatusCode, detail)
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Check verifies the server is reachable and whether the given model is present.
// It GETs /api/tags with a 10s deadline. On connection/HTTP error returns ErrUnreachable (via %w).
func (c *Client) Check(ctx context.Context, model string) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, _checkTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("ollama tags", resp)
	}
	var body tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama tags: parse response: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	modelPresent := false
	for _, m := range body.Models {
		names = append(names, m.Name)
		if m.Name == model {
			modelPresent = true
		}
	}
	return &CheckResult{
		Reachable:    true,
		ModelPresent: modelPresent,
		ModelNames:   names,
	}, nil
}
