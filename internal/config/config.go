package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources       Sources       `yaml:"sources"`
	Summarization Summarization `yaml:"summarization"`
	Video         Video         `yaml:"video"`
	Collaboration Collaboration `yaml:"collaboration"`
	Author        string        `yaml:"author"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

type Sources struct {
	RedditURL       string        `yaml:"reddit_url"`
	HackerNewsURL   string        `yaml:"hackernews_url"`
	NewsAPI         NewsAPIConfig `yaml:"newsapi"`
	Feeds           []Feed        `yaml:"feeds"`
	UserAgent       string        `yaml:"user_agent"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	MaxIdeas        int           `yaml:"max_ideas"`
	EnrichSummaries bool          `yaml:"enrich_summaries"`
	StaticFallback  bool          `yaml:"static_fallback"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
}

type Summarization struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

// Video configures the clip generator. Provider is "mock" or "http".
type Video struct {
	Provider       string `yaml:"provider"`
	Endpoint       string `yaml:"endpoint"`
	APIKeyEnv      string `yaml:"api_key_env"`
	MinDuration    int    `yaml:"min_duration"`
	MaxDuration    int    `yaml:"max_duration"`
	DelayMillis    int    `yaml:"delay_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Collaboration struct {
	Workspace        string `yaml:"workspace"`
	HeartbeatSeconds int    `yaml:"heartbeat_seconds"`
	StaleSeconds     int    `yaml:"stale_seconds"`
	RelayURL         string `yaml:"relay_url"`
}

// Heartbeat returns the presence broadcast interval.
func (c Collaboration) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// StaleAfter returns how long a silent peer stays visible.
func (c Collaboration) StaleAfter() time.Duration {
	return time.Duration(c.StaleSeconds) * time.Second
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for aistudio.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "aistudio")
}

// DataDir returns the XDG data directory for aistudio.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "aistudio")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/aistudio/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'aistudio init' to create a default config",
		xdgConfig,
	)
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment, without overriding variables that are already set. With no
// arguments it reads ./.env and ConfigDir()/.env. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(ConfigDir(), ".env")}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
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
		Sources: Sources{
			UserAgent:      "aistudio/1.0",
			TimeoutSeconds: 10,
			MaxIdeas:       15,
			StaticFallback: true,
			NewsAPI: NewsAPIConfig{
				APIKeyEnv: "NEWSAPI_KEY",
			},
		},
		Summarization: Summarization{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Video: Video{
			Provider:       "mock",
			APIKeyEnv:      "VIDEO_API_KEY",
			MinDuration:    5,
			MaxDuration:    24,
			DelayMillis:    1500,
			TimeoutSeconds: 300,
		},
		Collaboration: Collaboration{
			Workspace:        "default",
			HeartbeatSeconds: 5,
			StaleSeconds:     15,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Video.Provider {
	case "mock", "http":
	default:
		return fmt.Errorf("video.provider must be mock or http, got %q", c.Video.Provider)
	}
	if c.Video.Provider == "http" && c.Video.Endpoint == "" {
		return errors.New("video.endpoint is required for the http provider")
	}
	if c.Video.MinDuration < 1 || c.Video.MaxDuration < c.Video.MinDuration {
		return fmt.Errorf("video durations must satisfy 1 <= min <= max, got %d..%d", c.Video.MinDuration, c.Video.MaxDuration)
	}
	if c.Collaboration.HeartbeatSeconds <= 0 || c.Collaboration.StaleSeconds <= c.Collaboration.HeartbeatSeconds {
		return fmt.Errorf("collaboration.stale_seconds (%d) must exceed heartbeat_seconds (%d)",
			c.Collaboration.StaleSeconds, c.Collaboration.HeartbeatSeconds)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath returns the workspace database path inside the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "aistudio.db")
}

// AuthorName returns the configured author, falling back to $USER.
func (c *Config) AuthorName() string {
	if c.Author != "" {
		return c.Author
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "producer"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
