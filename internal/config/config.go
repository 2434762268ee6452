package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

const appName = "commentpulse"

type Config struct {
	Site      Site      `yaml:"site"`
	Fetch     Fetch     `yaml:"fetch"`
	Sentiment Sentiment `yaml:"sentiment"`
	Report    Report    `yaml:"report"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Site struct {
	BaseURL   string    `yaml:"base_url"`
	PagePath  string    `yaml:"page_path"`
	MaxPages  int       `yaml:"max_pages"`
	Selectors Selectors `yaml:"selectors"`
}

type Selectors struct {
	Article     string `yaml:"article"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Comment     string `yaml:"comment"`
}

type Fetch struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
}

type Sentiment struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Report struct {
	Bins   int    `yaml:"bins"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type Server struct {
	Port     int    `yaml:"port"`
	Schedule string `yaml:"schedule"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for commentpulse.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/commentpulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'commentpulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Site: Site{
			PagePath: "/page/%d",
			Selectors: Selectors{
				Article:     "article",
				Title:       "h1, h2, h3, h4, h5, h6",
				Description: "p.description",
				Comment:     "div.comment",
			},
		},
		Fetch: Fetch{TimeoutSeconds: 10},
		Sentiment: Sentiment{
			Provider:    "lexicon",
			Model:       "llama3.2",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   32,
		},
		Report:  Report{Bins: 20, Format: "table"},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site.BaseURL) == "" {
		return fmt.Errorf("site.base_url must be set")
	}
	if strings.Count(c.Site.PagePath, "%d") != 1 || strings.Count(c.Site.PagePath, "%") != 1 {
		return fmt.Errorf("site.page_path must contain exactly one %%d and no other verbs, got %q", c.Site.PagePath)
	}
	if c.Site.MaxPages < 0 {
		return fmt.Errorf("site.max_pages must not be negative")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be positive")
	}
	switch strings.ToLower(c.Sentiment.Provider) {
	case "lexicon", "ollama", "openai":
	default:
		return fmt.Errorf("sentiment.provider must be lexicon, ollama or openai, got %q", c.Sentiment.Provider)
	}
	switch c.Report.Format {
	case "table", "markdown", "html", "json":
	default:
		return fmt.Errorf("report.format must be table, markdown, html or json, got %q", c.Report.Format)
	}
	if c.Server.Schedule != "" {
		if _, err := cron.ParseStandard(c.Server.Schedule); err != nil {
			return fmt.Errorf("server.schedule: %w", err)
		}
	}
	return nil
}

// FetchTimeout returns the per-page request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
