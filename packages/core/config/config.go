// Package config carries the explicit configuration value threaded through
// the session orchestrator. There is no ambient or package-level mutable
// state: callers load a Config once and pass it down.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the persisted tool configuration.
type Config struct {
	DefaultEnvironment string            `json:"defaultEnvironment,omitempty" toml:"default_environment,omitempty"`
	TimeoutSeconds     int               `json:"timeoutSeconds,omitempty"     toml:"timeout_seconds,omitempty"`
	FollowRedirects    *bool             `json:"followRedirects,omitempty"    toml:"follow_redirects,omitempty"`
	MaxRedirects       int               `json:"maxRedirects,omitempty"       toml:"max_redirects,omitempty"`
	KeepAuthOnRedirect *bool             `json:"keepAuthOnRedirect,omitempty" toml:"keep_auth_on_redirect,omitempty"`
	ValidateSSL        *bool             `json:"validateSSL,omitempty"        toml:"validate_ssl,omitempty"`
	Proxy              string            `json:"proxy,omitempty"              toml:"proxy,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"            toml:"headers,omitempty"`
	Output             string            `json:"output,omitempty"             toml:"output,omitempty"`
	NoColor            *bool             `json:"noColor,omitempty"            toml:"no_color,omitempty"`
	HistoryLimit       int               `json:"historyLimit,omitempty"       toml:"history_limit,omitempty"`
	DataDir            string            `json:"dataDir,omitempty"            toml:"data_dir,omitempty"`
}

// BoolPtr returns a pointer to b, for the optional boolean fields.
func BoolPtr(b bool) *bool { return &b }

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

func (c *Config) GetFollowRedirects() bool    { return getBool(c.FollowRedirects, true) }
func (c *Config) GetKeepAuthOnRedirect() bool { return getBool(c.KeepAuthOnRedirect, false) }
func (c *Config) GetValidateSSL() bool        { return getBool(c.ValidateSSL, true) }
func (c *Config) GetNoColor() bool            { return getBool(c.NoColor, false) }

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		TimeoutSeconds: 30,
		MaxRedirects:   10,
		Output:         "auto",
		HistoryLimit:   1000,
	}
}

type fileFormat string

const (
	formatTOML fileFormat = "toml"
	formatJSON fileFormat = "json"
)

type candidate struct {
	path   string
	format fileFormat
}

// Load reads the config from dir, trying config.toml first and then
// config.json. Missing files skip to the next candidate; parse errors fail
// immediately. With neither present the defaults are returned.
func Load(dir string) (*Config, error) {
	candidates := []candidate{
		{path: filepath.Join(dir, "config.toml"), format: formatTOML},
		{path: filepath.Join(dir, "config.json"), format: formatJSON},
	}

	for _, cand := range candidates {
		data, err := os.ReadFile(cand.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", cand.path, err)
		}

		cfg := Default()
		if err := decode(data, cand.format, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", cand.path, err)
		}
		return cfg, nil
	}

	return Default(), nil
}

func decode(data []byte, format fileFormat, cfg *Config) error {
	switch format {
	case formatTOML:
		return toml.Unmarshal(data, cfg)
	case formatJSON:
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unknown config format %q", format)
	}
}

// Save writes the config as TOML into dir.
func Save(dir string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}
