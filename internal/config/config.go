// Package config loads service configuration from an optional JSON file
// overlaid by environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Defaults.
const (
	DefaultPort           = 8080
	DefaultSessionTTL     = 2 * time.Hour
	DefaultAgentTimeout   = 2 * time.Minute
	DefaultSearchCacheTTL = 24 * time.Hour
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Duration is a time.Duration that reads "90s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "invalid duration %q", s)
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return errors.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the service configuration. All fields are optional in the file;
// FromEnv and MergeWithDefaults fill the rest.
type Config struct {
	// Model access
	GeminiAPIKey string            `json:"gemini_api_key,omitempty"`
	Models       map[string]string `json:"models,omitempty"` // tier -> model name

	// Web search grounding
	SearchAPIKey   string   `json:"search_api_key,omitempty"`
	SearchEngineID string   `json:"search_engine_id,omitempty"`
	RedisURL       string   `json:"redis_url,omitempty"`
	SearchCacheTTL Duration `json:"search_cache_ttl,omitempty"`

	// Server
	Port         int      `json:"port,omitempty"`
	SessionTTL   Duration `json:"session_ttl,omitempty"`
	AgentTimeout Duration `json:"agent_timeout,omitempty"`

	// Logging
	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get current directory")
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}

	return &cfg, nil
}

// Validate checks value ranges. Missing keys are reported by the commands
// that need them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.SessionTTL < 0 || c.AgentTimeout < 0 || c.SearchCacheTTL < 0 {
		return errors.New("config error: durations must be non-negative")
	}
	if (c.SearchAPIKey == "") != (c.SearchEngineID == "") {
		return errors.New("config error: 'search_api_key' and 'search_engine_id' must be set together")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return errors.Errorf("config error: unknown 'log_format' %q", c.LogFormat)
	}
	return nil
}

// SearchEnabled reports whether web search grounding is configured.
func (c *Config) SearchEnabled() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

// MergeWithDefaults returns a copy with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.RedisURL == "" {
		result.RedisURL = defaults.RedisURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.SearchCacheTTL == 0 {
		result.SearchCacheTTL = defaults.SearchCacheTTL
	}
	if result.SessionTTL == 0 {
		result.SessionTTL = defaults.SessionTTL
	}
	if result.AgentTimeout == 0 {
		result.AgentTimeout = defaults.AgentTimeout
	}
	if len(result.Models) == 0 && len(defaults.Models) > 0 {
		result.Models = make(map[string]string, len(defaults.Models))
		for k, v := range defaults.Models {
			result.Models[k] = v
		}
	}

	return result
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:           DefaultPort,
		SessionTTL:     Duration(DefaultSessionTTL),
		AgentTimeout:   Duration(DefaultAgentTimeout),
		SearchCacheTTL: Duration(DefaultSearchCacheTTL),
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
	}
}

// FromEnv returns a copy of c with every set environment variable applied
// on top. Malformed numbers and durations are errors.
func (c *Config) FromEnv() (Config, error) {
	result := *c

	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("GEMINI_API_KEY", &result.GeminiAPIKey)
	setString("SEARCH_API_KEY", &result.SearchAPIKey)
	setString("SEARCH_ENGINE_ID", &result.SearchEngineID)
	setString("REDIS_URL", &result.RedisURL)
	setString("LOG_LEVEL", &result.LogLevel)
	setString("LOG_FORMAT", &result.LogFormat)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid PORT %q", v)
		}
		result.Port = port
	}

	for _, d := range []struct {
		key string
		dst *Duration
	}{
		{"SEARCH_CACHE_TTL", &result.SearchCacheTTL},
		{"SESSION_TTL", &result.SessionTTL},
		{"AGENT_TIMEOUT", &result.AgentTimeout},
	} {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, errors.Wrapf(err, "invalid %s", d.key)
			}
			*d.dst = Duration(parsed)
		}
	}

	return result, nil
}

// Load reads the optional file at path, overlays the environment, and fills
// defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	base := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		base = fileCfg
	}

	withEnv, err := base.FromEnv()
	if err != nil {
		return Config{}, err
	}
	merged := withEnv.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}
