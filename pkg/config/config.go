// Package config loads the flowchat configuration once at startup from
// defaults, an optional TOML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/flowchat/pkg/flow"
)

// Environment variables read by Load.
const (
	EnvToken       = "LANGFLOW_TOKEN"
	EnvBaseURL     = "LANGFLOW_BASE_URL"
	EnvFlowID      = "LANGFLOW_FLOW_ID"
	EnvWorkspaceID = "LANGFLOW_WORKSPACE_ID"
	EnvUpstreamURL = "LANGFLOW_UPSTREAM_URL"
	EnvLogFile     = "FLOWCHAT_LOG_FILE"
)

const (
	defaultBaseURL     = "http://localhost:8080/api/langflow"
	defaultListenAddr  = ":8080"
	defaultUpstreamURL = "https://api.langflow.astra.datastax.com"
	defaultPathPrefix  = "/api/langflow"
)

// Config is the flowchat configuration.
type Config struct {
	// BaseURL the flow client posts to; the proxy path by default.
	BaseURL string `toml:"base_url"`

	// Token is only ever read from the environment.
	Token string `toml:"-"`

	FlowID      string `toml:"flow_id"`
	WorkspaceID string `toml:"workspace_id"`

	// Markdown renders bot replies with glamour in the TUI.
	Markdown bool `toml:"markdown"`

	// LogFile receives TUI logs. Empty means ~/.flowchat/flowchat.log.
	LogFile string `toml:"log_file"`

	Debug bool `toml:"debug"`

	Proxy ProxyConfig `toml:"proxy"`
}

// ProxyConfig configures `flowchat proxy`.
type ProxyConfig struct {
	ListenAddr  string `toml:"listen"`
	UpstreamURL string `toml:"upstream"`
	PathPrefix  string `toml:"path_prefix"`
}

// Default returns a configuration with default values and no credentials.
func Default() Config {
	return Config{
		BaseURL: defaultBaseURL,
		Proxy: ProxyConfig{
			ListenAddr:  defaultListenAddr,
			UpstreamURL: defaultUpstreamURL,
			PathPrefix:  defaultPathPrefix,
		},
	}
}

// Load builds the configuration. path is an optional TOML file; a missing
// file is an error only when path was given explicitly. envFile is loaded
// with godotenv when it exists and never overrides variables already set.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not read env file %s: %w", envFile, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&cfg.Token, EnvToken)
	set(&cfg.BaseURL, EnvBaseURL)
	set(&cfg.FlowID, EnvFlowID)
	set(&cfg.WorkspaceID, EnvWorkspaceID)
	set(&cfg.Proxy.UpstreamURL, EnvUpstreamURL)
	set(&cfg.LogFile, EnvLogFile)
}

// Validate checks the settings needed to chat. It returns a
// flow.ConfigurationError naming the first missing field.
func (c Config) Validate() error {
	switch {
	case c.Token == "":
		return flow.ConfigurationError{Field: "token"}
	case c.BaseURL == "":
		return flow.ConfigurationError{Field: "base URL"}
	case c.FlowID == "":
		return flow.ConfigurationError{Field: "flow id"}
	case c.WorkspaceID == "":
		return flow.ConfigurationError{Field: "workspace id"}
	}
	return nil
}

// ValidateProxy checks the settings needed to run the proxy.
func (c Config) ValidateProxy() error {
	switch {
	case c.Proxy.ListenAddr == "":
		return flow.ConfigurationError{Field: "proxy listen address"}
	case c.Proxy.UpstreamURL == "":
		return flow.ConfigurationError{Field: "proxy upstream URL"}
	case !strings.HasPrefix(c.Proxy.PathPrefix, "/"):
		return flow.ConfigurationError{Field: "proxy path prefix"}
	}
	return nil
}

// LogPath returns the TUI log file path.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogFile) != "" {
		return c.LogFile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(homeDir) == "" {
		return filepath.Join(".flowchat", "flowchat.log")
	}
	return filepath.Join(homeDir, ".flowchat", "flowchat.log")
}
