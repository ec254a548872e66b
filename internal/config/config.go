package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Fill strategies.
const (
	StrategyExtract = "extract" // JSON label->value extraction, then in-place substitution
	StrategyWhole   = "whole"   // model rewrites the whole body (or asks another question)
)

// DefaultCompletionToken is the reserved reply that ends a dialogue.
const DefaultCompletionToken = "__COMPLETE__"

// CallParams holds sampling parameters for one kind of gateway call.
type CallParams struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// TemplatesDir is the root of the template tree: <root>/<category>[/<subtype>]/*.docx
	// with a metadata.json catalog per scope.
	TemplatesDir string `json:"templates_dir,omitempty"`

	// OutputDir receives generated documents. Defaults to <base>/generated.
	OutputDir string `json:"output_dir,omitempty"`

	// Model is the chat model name sent to the gateway.
	Model string `json:"model,omitempty"`

	// BaseURL is the OpenAI-compatible API base (no trailing /v1).
	BaseURL string `json:"base_url,omitempty"`

	// APIKey is only ever read from the environment.
	APIKey string `json:"-"`

	// HTTPTimeoutSeconds bounds a single gateway HTTP round trip.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// Strategy selects the fill strategy: "extract" or "whole".
	Strategy string `json:"strategy,omitempty"`

	// CompletionToken is the exact reply that signals no further questions.
	CompletionToken string `json:"completion_token,omitempty"`

	// Per-call sampling parameters.
	Select    CallParams `json:"select,omitempty"`
	Question  CallParams `json:"question,omitempty"`
	Extract   CallParams `json:"extract,omitempty"`
	Rewrite   CallParams `json:"rewrite,omitempty"`
	Summarize CallParams `json:"summarize,omitempty"`

	// CatalogCacheSeconds is how long parsed catalogs and templates stay cached.
	CatalogCacheSeconds int `json:"catalog_cache_seconds,omitempty"`

	// SummarizeIntervalMillis paces summarizer gateway calls.
	SummarizeIntervalMillis int `json:"summarize_interval_millis,omitempty"`

	// SummarizeWorkers is the number of folders summarized concurrently.
	SummarizeWorkers int `json:"summarize_workers,omitempty"`

	// HTTP API settings.
	Bind           string   `json:"bind,omitempty"`
	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// LogMode is "dev" (console) or "prod" (JSON).
	LogMode string `json:"log_mode,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names to disable entirely.
	// Known types: "template", "dialogue", "document".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TemplatesDir:            "templates",
		Model:                   "gpt-4",
		BaseURL:                 "https://api.openai.com",
		HTTPTimeoutSeconds:      90,
		Strategy:                StrategyExtract,
		CompletionToken:         DefaultCompletionToken,
		Select:                  CallParams{Temperature: 0.3, MaxTokens: 60},
		Question:                CallParams{Temperature: 0.3, MaxTokens: 300},
		Extract:                 CallParams{Temperature: 0.2, MaxTokens: 800},
		Rewrite:                 CallParams{Temperature: 0.2, MaxTokens: 4000},
		Summarize:               CallParams{Temperature: 0.4, MaxTokens: 350},
		CatalogCacheSeconds:     300,
		SummarizeIntervalMillis: 1000,
		SummarizeWorkers:        2,
		Bind:                    "127.0.0.1",
		Port:                    8000,
		AllowedOrigins:          []string{"*"},
		LogMode:                 "dev",
	}
}

// Load loads configuration from baseDir/config.json, then applies .env and
// environment overrides. Returns defaults if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.clerk.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(baseDir, "generated")
	}
	if err := LoadEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads the given dotenv files (missing files are skipped) and then
// overlays recognised environment variables onto cfg.
// Variables already present in the process environment win over dotenv values.
func LoadEnv(cfg *Config, dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if v := env("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := env("OPENAI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := env("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := env("CLERK_TEMPLATES_DIR"); v != "" {
		cfg.TemplatesDir = v
	}
	if v := env("CLERK_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := env("CLERK_STRATEGY"); v != "" {
		cfg.Strategy = strings.ToLower(v)
	}
	if v := env("CLERK_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	if v := env("CLERK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLERK_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyExtract, StrategyWhole:
	default:
		return fmt.Errorf("strategy must be one of: %s, %s (got %q)", StrategyExtract, StrategyWhole, c.Strategy)
	}
	if strings.TrimSpace(c.CompletionToken) == "" {
		return errors.New("completion_token must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		TemplatesDir:    pickString(overlay.TemplatesDir, base.TemplatesDir),
		OutputDir:       pickString(overlay.OutputDir, base.OutputDir),
		Model:           pickString(overlay.Model, base.Model),
		BaseURL:         pickString(overlay.BaseURL, base.BaseURL),
		APIKey:          pickString(overlay.APIKey, base.APIKey),
		Strategy:        pickString(strings.ToLower(overlay.Strategy), base.Strategy),
		CompletionToken: pickString(overlay.CompletionToken, base.CompletionToken),
		Bind:            pickString(overlay.Bind, base.Bind),
		LogMode:         pickString(overlay.LogMode, base.LogMode),

		HTTPTimeoutSeconds:      pickInt(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds),
		CatalogCacheSeconds:     pickInt(overlay.CatalogCacheSeconds, base.CatalogCacheSeconds),
		SummarizeIntervalMillis: pickInt(overlay.SummarizeIntervalMillis, base.SummarizeIntervalMillis),
		SummarizeWorkers:        pickInt(overlay.SummarizeWorkers, base.SummarizeWorkers),
		Port:                    pickInt(overlay.Port, base.Port),
		DBMaxOpenConns:          pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:          pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),

		Select:    mergeParams(base.Select, overlay.Select),
		Question:  mergeParams(base.Question, overlay.Question),
		Extract:   mergeParams(base.Extract, overlay.Extract),
		Rewrite:   mergeParams(base.Rewrite, overlay.Rewrite),
		Summarize: mergeParams(base.Summarize, overlay.Summarize),
	}

	// Origins replace rather than merge: "*" plus a concrete list is meaningless.
	result.AllowedOrigins = mergeStringSlice(nil, overlay.AllowedOrigins)
	if result.AllowedOrigins == nil {
		result.AllowedOrigins = mergeStringSlice(nil, base.AllowedOrigins)
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func mergeParams(base, overlay CallParams) CallParams {
	out := base
	if overlay.Temperature != 0 {
		out.Temperature = overlay.Temperature
	}
	if overlay.MaxTokens != 0 {
		out.MaxTokens = overlay.MaxTokens
	}
	return out
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
