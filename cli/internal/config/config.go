// Package config provides ollacommit configuration with a defined load order:
// CLI flags > environment variables > repo config > global config > defaults.
//
// Paths:
//   - Repo: .ollacommit/config.toml (relative to repo root)
//   - Global: XDG config dir, e.g. ~/.config/ollacommit/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - OLLACOMMIT_MODEL, OLLACOMMIT_OLLAMA_BASE_URL, OLLACOMMIT_CONTEXT_LIMIT, OLLACOMMIT_WARN_THRESHOLD,
//   - OLLACOMMIT_API_KEY (falls back to OPENAI_API_KEY),
//   - OLLACOMMIT_LANGUAGE (falls back to AI_COMMIT_LANGUAGE), OLLACOMMIT_COMMIT_TYPE, OLLACOMMIT_TEMPLATE,
//   - OLLACOMMIT_EMOJI, OLLACOMMIT_LIST, OLLACOMMIT_STREAM, OLLACOMMIT_FILTER_FEE, OLLACOMMIT_DEBUG
//     (1/true/yes/on = true, 0/false/no/off = false),
//   - OLLACOMMIT_NUM_OPTIONS, OLLACOMMIT_TEMPERATURE, OLLACOMMIT_FEE_PER_1K_TOKENS,
//   - OLLACOMMIT_TIMEOUT (Go duration string or integer seconds; 0 disables the timeout).
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ollacommit/cli/internal/commitmsg"
	"ollacommit/cli/internal/erruser"
)

// ErrMissingAPIKey is returned by Validate when no credential is configured.
var ErrMissingAPIKey = errors.New("api key not set")

// Config holds all ollacommit configuration.
type Config struct {
	Model         string `toml:"model"`
	OllamaBaseURL string `toml:"ollama_base_url"`
	APIKey        string `toml:"api_key"`

	Language   string `toml:"language"`
	CommitType string `toml:"commit_type"`
	// Template wraps each message; {COMMIT_MESSAGE} and {GIT_BRANCH} are substituted.
	Template   string `toml:"template"`
	Emoji      bool   `toml:"emoji"`
	List       bool   `toml:"list"`
	NumOptions int    `toml:"num_options"`
	// Force commits the single proposal without asking. Flag only.
	Force bool `toml:"-"`

	// Stream selects the NDJSON client; false sends one atomic request.
	Stream      bool          `toml:"stream"`
	Timeout     time.Duration `toml:"timeout"`
	Temperature float64       `toml:"temperature"`

	ContextLimit  int     `toml:"context_limit"`
	WarnThreshold float64 `toml:"warn_threshold"`
	FeePer1K      float64 `toml:"fee_per_1k_tokens"`
	FilterFee     bool    `toml:"filter_fee"`

	Debug bool `toml:"-"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value".
type Overrides struct {
	Model         *string
	OllamaBaseURL *string
	APIKey        *string
	Language      *string
	CommitType    *string
	Template      *string
	Emoji         *bool
	List          *bool
	NumOptions    *int
	Force         *bool
	Stream        *bool
	Timeout       *time.Duration
	FilterFee     *bool
	Debug         *bool
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot is the repository root; if set, repo config is RepoRoot/.ollacommit/config.toml.
	RepoRoot string
	// GlobalConfigPath is the global config file path; if empty, XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultModel         = "qwen2.5-coder:7b"
	_defaultOllamaBaseURL = "http://127.0.0.1:11434"
	_defaultLanguage      = "english"
	_defaultContextLimit  = 32768
	_defaultWarnThreshold = 0.9
	_defaultTemperature   = 0.2
	_defaultFeePer1K      = 0.002
)

// errIntOverflow is returned when an int64 value does not fit in int (e.g. on 32-bit or huge TOML/env values).
var errIntOverflow = errors.New("value out of range for int")

// int64ToInt converts n to int. It returns an error if n is outside the range of int (e.g. overflow on 32-bit).
func int64ToInt(n int64) (int, error) {
	if n < int64(math.MinInt) || n > int64(math.MaxInt) {
		return 0, errIntOverflow
	}
	return int(n), nil
}

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		Model:         _defaultModel,
		OllamaBaseURL: _defaultOllamaBaseURL,
		Language:      _defaultLanguage,
		NumOptions:    commitmsg.DefaultNumOptions,
		Stream:        true,
		Temperature:   _defaultTemperature,
		ContextLimit:  _defaultContextLimit,
		WarnThreshold: _defaultWarnThreshold,
		FeePer1K:      _defaultFeePer1K,
	}
}

// Validate reports configuration that cannot produce a request.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return erruser.New("No API key found. Set OLLACOMMIT_API_KEY (or OPENAI_API_KEY) or pass --api-key.", ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.Model) == "" {
		return erruser.New("No model configured. Set OLLACOMMIT_MODEL or pass --model.", nil)
	}
	return nil
}

// GenerationOptions returns the per-invocation options record, normalized.
func (c Config) GenerationOptions() commitmsg.GenerationOptions {
	return commitmsg.GenerationOptions{
		Language:   c.Language,
		CommitType: c.CommitType,
		Template:   c.Template,
		Emoji:      c.Emoji,
		Force:      c.Force,
		List:       c.List,
		NumOptions: c.NumOptions,
	}.Normalized()
}

// Load loads configuration with precedence: defaults < global file < repo file < env < overrides.
// Missing config files are ignored. Invalid TOML or invalid env values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "ollacommit", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	if opts.RepoRoot != "" {
		repoPath := filepath.Join(opts.RepoRoot, ".ollacommit", "config.toml")
		if err := mergeFile(&cfg, repoPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only overwrites fields that are
// present in the file; empty strings keep the previous value.
// Missing file is skipped (no error).
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		Model         *string  `toml:"model"`
		OllamaBaseURL *string  `toml:"ollama_base_url"`
		APIKey        *string  `toml:"api_key"`
		Language      *string  `toml:"language"`
		CommitType    *string  `toml:"commit_type"`
		Template      *string  `toml:"template"`
		Emoji         *bool    `toml:"emoji"`
		List          *bool    `toml:"list"`
		NumOptions    *int64   `toml:"num_options"`
		Stream        *bool    `toml:"stream"`
		Timeout       *string  `toml:"timeout"`
		Temperature   *float64 `toml:"temperature"`
		ContextLimit  *int64   `toml:"context_limit"`
		WarnThreshold *float64 `toml:"warn_threshold"`
		FeePer1K      *float64 `toml:"fee_per_1k_tokens"`
		FilterFee     *bool    `toml:"filter_fee"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(fmt.Sprintf("Invalid configuration in %s.", path), err)
	}
	setString(&cfg.Model, file.Model)
	setString(&cfg.OllamaBaseURL, file.OllamaBaseURL)
	setString(&cfg.APIKey, file.APIKey)
	setString(&cfg.Language, file.Language)
	setString(&cfg.CommitType, file.CommitType)
	setString(&cfg.Template, file.Template)
	setBool(&cfg.Emoji, file.Emoji)
	setBool(&cfg.List, file.List)
	setBool(&cfg.Stream, file.Stream)
	setBool(&cfg.FilterFee, file.FilterFee)
	if file.NumOptions != nil {
		if *file.NumOptions < 1 {
			return erruser.New("Configuration num_options must be at least 1.", nil)
		}
		v, err := int64ToInt(*file.NumOptions)
		if err != nil {
			return erruser.New("Configuration num_options value out of range.", err)
		}
		cfg.NumOptions = v
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New("Configuration timeout is invalid.", err)
		}
		cfg.Timeout = d
	}
	if file.Temperature != nil && *file.Temperature >= 0 && *file.Temperature <= 2 {
		cfg.Temperature = *file.Temperature
	}
	if file.ContextLimit != nil && *file.ContextLimit > 0 {
		v, err := int64ToInt(*file.ContextLimit)
		if err != nil {
			return erruser.New("Configuration context_limit value out of range.", err)
		}
		cfg.ContextLimit = v
	}
	if file.WarnThreshold != nil && *file.WarnThreshold >= 0 {
		cfg.WarnThreshold = *file.WarnThreshold
	}
	if file.FeePer1K != nil && *file.FeePer1K >= 0 {
		cfg.FeePer1K = *file.FeePer1K
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil && *v != "" {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	// Try Go duration first (e.g. "5m", "30s")
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	// Try integer seconds
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// env key names for config
const (
	envModel          = "OLLACOMMIT_MODEL"
	envOllamaBaseURL  = "OLLACOMMIT_OLLAMA_BASE_URL"
	envAPIKey         = "OLLACOMMIT_API_KEY"
	envAPIKeyFallback = "OPENAI_API_KEY"
	envLanguage       = "OLLACOMMIT_LANGUAGE"
	envLanguageLegacy = "AI_COMMIT_LANGUAGE"
	envCommitType     = "OLLACOMMIT_COMMIT_TYPE"
	envTemplate       = "OLLACOMMIT_TEMPLATE"
	envEmoji          = "OLLACOMMIT_EMOJI"
	envList           = "OLLACOMMIT_LIST"
	envNumOptions     = "OLLACOMMIT_NUM_OPTIONS"
	envStream         = "OLLACOMMIT_STREAM"
	envTimeout        = "OLLACOMMIT_TIMEOUT"
	envTemperature    = "OLLACOMMIT_TEMPERATURE"
	envContextLimit   = "OLLACOMMIT_CONTEXT_LIMIT"
	envWarnThreshold  = "OLLACOMMIT_WARN_THRESHOLD"
	envFeePer1K       = "OLLACOMMIT_FEE_PER_1K_TOKENS"
	envFilterFee      = "OLLACOMMIT_FILTER_FEE"
	envDebug          = "OLLACOMMIT_DEBUG"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(e[:idx])
		val := strings.TrimSpace(e[idx+1:])
		vals[key] = val
	}
	if v := vals[envModel]; v != "" {
		cfg.Model = v
	}
	if v := vals[envOllamaBaseURL]; v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := firstSet(vals, envAPIKey, envAPIKeyFallback); v != "" {
		cfg.APIKey = v
	}
	if v := firstSet(vals, envLanguage, envLanguageLegacy); v != "" {
		cfg.Language = v
	}
	if v := vals[envCommitType]; v != "" {
		cfg.CommitType = v
	}
	if v, ok := vals[envTemplate]; ok {
		cfg.Template = v
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{envEmoji, &cfg.Emoji},
		{envList, &cfg.List},
		{envStream, &cfg.Stream},
		{envFilterFee, &cfg.FilterFee},
		{envDebug, &cfg.Debug},
	} {
		v := vals[b.key]
		if v == "" {
			continue
		}
		parsed, err := parseBool(v)
		if err != nil {
			return erruser.New(b.key+" must be 1/true/yes/on or 0/false/no/off.", err)
		}
		*b.dst = parsed
	}
	if v := vals[envNumOptions]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return erruser.New("OLLACOMMIT_NUM_OPTIONS must be a valid number.", err)
		}
		if n < 1 {
			return erruser.New("OLLACOMMIT_NUM_OPTIONS must be at least 1.", nil)
		}
		cfg.NumOptions, err = int64ToInt(n)
		if err != nil {
			return erruser.New("OLLACOMMIT_NUM_OPTIONS value out of range.", err)
		}
	}
	if v := vals[envTimeout]; v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New("OLLACOMMIT_TIMEOUT must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	if v := vals[envTemperature]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New("OLLACOMMIT_TEMPERATURE must be a valid number.", err)
		}
		if f < 0 || f > 2 {
			return erruser.New("OLLACOMMIT_TEMPERATURE must be between 0 and 2.", nil)
		}
		cfg.Temperature = f
	}
	if v := vals[envContextLimit]; v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return erruser.New("OLLACOMMIT_CONTEXT_LIMIT must be a valid number.", err)
		}
		cfg.ContextLimit, err = int64ToInt(n)
		if err != nil {
			return erruser.New("OLLACOMMIT_CONTEXT_LIMIT value out of range.", err)
		}
	}
	if v := vals[envWarnThreshold]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New("OLLACOMMIT_WARN_THRESHOLD must be a valid number.", err)
		}
		cfg.WarnThreshold = f
	}
	if v := vals[envFeePer1K]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return erruser.New("OLLACOMMIT_FEE_PER_1K_TOKENS must be a valid number.", err)
		}
		if f < 0 {
			return erruser.New("OLLACOMMIT_FEE_PER_1K_TOKENS must be non-negative.", nil)
		}
		cfg.FeePer1K = f
	}
	return nil
}

// firstSet returns the value of the first key with a non-empty value.
func firstSet(vals map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := vals[k]; v != "" {
			return v
		}
	}
	return ""
}

// parseBool parses common boolean env values: 1/true/yes/on = true, 0/false/no/off = false (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	setString(&cfg.Model, o.Model)
	setString(&cfg.OllamaBaseURL, o.OllamaBaseURL)
	setString(&cfg.APIKey, o.APIKey)
	setString(&cfg.Language, o.Language)
	setString(&cfg.CommitType, o.CommitType)
	if o.Template != nil {
		cfg.Template = *o.Template
	}
	setBool(&cfg.Emoji, o.Emoji)
	setBool(&cfg.List, o.List)
	setBool(&cfg.Force, o.Force)
	setBool(&cfg.Stream, o.Stream)
	setBool(&cfg.FilterFee, o.FilterFee)
	setBool(&cfg.Debug, o.Debug)
	if o.NumOptions != nil {
		v := *o.NumOptions
		if v < 1 {
			v = 1
		}
		cfg.NumOptions = v
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
}
