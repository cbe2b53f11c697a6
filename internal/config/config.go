package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete repograph configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	Server     ServerConfig     `json:"server" mapstructure:"server"`
	GitHub     GitHubConfig     `json:"github" mapstructure:"github"`
	Summarizer SummarizerConfig `json:"summarizer" mapstructure:"summarizer"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	Graph      GraphConfig      `json:"graph" mapstructure:"graph"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `json:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                string   `json:"host" mapstructure:"host"`
	Port                int      `json:"port" mapstructure:"port"`
	ReadTimeoutSeconds  int      `json:"readTimeoutSeconds" mapstructure:"readTimeoutSeconds"`
	WriteTimeoutSeconds int      `json:"writeTimeoutSeconds" mapstructure:"writeTimeoutSeconds"`
	AllowedOrigins      []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	Gzip                bool     `json:"gzip" mapstructure:"gzip"`
}

// GitHubConfig contains upstream repository API settings
type GitHubConfig struct {
	BaseURL        string `json:"baseUrl" mapstructure:"baseUrl"`
	Token          string `json:"-" mapstructure:"token"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	MaxConcurrency int    `json:"maxConcurrency" mapstructure:"maxConcurrency"`
	DefaultDepth   int    `json:"defaultDepth" mapstructure:"defaultDepth"`
	MaxDepth       int    `json:"maxDepth" mapstructure:"maxDepth"`
}

// SummarizerConfig contains language-model settings
type SummarizerConfig struct {
	BaseURL         string `json:"baseUrl" mapstructure:"baseUrl"`
	Model           string `json:"model" mapstructure:"model"`
	APIKey          string `json:"-" mapstructure:"apiKey"`
	TimeoutSeconds  int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	MaxContentBytes int    `json:"maxContentBytes" mapstructure:"maxContentBytes"`
}

// CacheConfig contains cache and backing store settings
type CacheConfig struct {
	Backend           string     `json:"backend" mapstructure:"backend"`
	FilePath          string     `json:"filePath" mapstructure:"filePath"`
	SummaryTTLSeconds int        `json:"summaryTtlSeconds" mapstructure:"summaryTtlSeconds"`
	GraphTTLSeconds   int        `json:"graphTtlSeconds" mapstructure:"graphTtlSeconds"`
	NATS              NATSConfig `json:"nats" mapstructure:"nats"`
	S3                S3Config   `json:"s3" mapstructure:"s3"`
}

// NATSConfig selects a JetStream key-value bucket
type NATSConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Bucket string `json:"bucket" mapstructure:"bucket"`
}

// S3Config selects an S3-compatible bucket
type S3Config struct {
	Bucket   string `json:"bucket" mapstructure:"bucket"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
	Region   string `json:"region" mapstructure:"region"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// GraphConfig contains graph building limits
type GraphConfig struct {
	MaxDepth int `json:"maxDepth" mapstructure:"maxDepth"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DataDir: ".repograph",
		Server: ServerConfig{
			Host:                "localhost",
			Port:                8080,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 120,
			AllowedOrigins:      []string{"*"},
			Gzip:                true,
		},
		GitHub: GitHubConfig{
			BaseURL:        "https://api.github.com",
			TimeoutSeconds: 30,
			MaxConcurrency: 8,
			DefaultDepth:   4,
			MaxDepth:       10,
		},
		Summarizer: SummarizerConfig{
			BaseURL:         "https://generativelanguage.googleapis.com",
			Model:           "gemini-2.0-flash",
			TimeoutSeconds:  60,
			MaxContentBytes: 200000,
		},
		Cache: CacheConfig{
			Backend:           "sqlite",
			SummaryTTLSeconds: 24 * 60 * 60,
			GraphTTLSeconds:   60 * 60,
			NATS: NATSConfig{
				URL:    "nats://127.0.0.1:4222",
				Bucket: "repograph",
			},
			S3: S3Config{
				Prefix: "repograph/cache",
			},
		},
		Graph: GraphConfig{
			MaxDepth: 64,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}

// EnvPrefix is the prefix of environment overrides, e.g. REPOGRAPH_SERVER_PORT.
const EnvPrefix = "REPOGRAPH"

// LoadConfig loads configuration from path (JSON, TOML or YAML by extension).
// An empty path looks for config.{json,toml,yaml} in the default data
// directory. A missing file yields the defaults. Environment variables
// override file values; GITHUB_TOKEN and GEMINI_API_KEY are honored directly.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("summarizer.apiKey", EnvPrefix+"_SUMMARIZER_APIKEY", "GEMINI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultConfig().DataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every field of def with viper so that env
// overrides and Unmarshal see keys that are absent from the file.
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("version", def.Version)
	v.SetDefault("dataDir", def.DataDir)

	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.readTimeoutSeconds", def.Server.ReadTimeoutSeconds)
	v.SetDefault("server.writeTimeoutSeconds", def.Server.WriteTimeoutSeconds)
	v.SetDefault("server.allowedOrigins", def.Server.AllowedOrigins)
	v.SetDefault("server.gzip", def.Server.Gzip)

	v.SetDefault("github.baseUrl", def.GitHub.BaseURL)
	v.SetDefault("github.token", def.GitHub.Token)
	v.SetDefault("github.timeoutSeconds", def.GitHub.TimeoutSeconds)
	v.SetDefault("github.maxConcurrency", def.GitHub.MaxConcurrency)
	v.SetDefault("github.defaultDepth", def.GitHub.DefaultDepth)
	v.SetDefault("github.maxDepth", def.GitHub.MaxDepth)

	v.SetDefault("summarizer.baseUrl", def.Summarizer.BaseURL)
	v.SetDefault("summarizer.model", def.Summarizer.Model)
	v.SetDefault("summarizer.apiKey", def.Summarizer.APIKey)
	v.SetDefault("summarizer.timeoutSeconds", def.Summarizer.TimeoutSeconds)
	v.SetDefault("summarizer.maxContentBytes", def.Summarizer.MaxContentBytes)

	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.filePath", def.Cache.FilePath)
	v.SetDefault("cache.summaryTtlSeconds", def.Cache.SummaryTTLSeconds)
	v.SetDefault("cache.graphTtlSeconds", def.Cache.GraphTTLSeconds)
	v.SetDefault("cache.nats.url", def.Cache.NATS.URL)
	v.SetDefault("cache.nats.bucket", def.Cache.NATS.Bucket)
	v.SetDefault("cache.s3.bucket", def.Cache.S3.Bucket)
	v.SetDefault("cache.s3.prefix", def.Cache.S3.Prefix)
	v.SetDefault("cache.s3.region", def.Cache.S3.Region)
	v.SetDefault("cache.s3.endpoint", def.Cache.S3.Endpoint)

	v.SetDefault("graph.maxDepth", def.Graph.MaxDepth)

	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.endpoint", def.Metrics.Endpoint)
}

// Save writes the configuration as indented JSON to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.GitHub.DefaultDepth <= 0 || c.GitHub.DefaultDepth > c.GitHub.MaxDepth {
		return &ConfigError{Field: "github.defaultDepth", Message: "must be between 1 and github.maxDepth"}
	}
	if c.GitHub.MaxConcurrency <= 0 {
		return &ConfigError{Field: "github.maxConcurrency", Message: "must be positive"}
	}
	if c.Cache.SummaryTTLSeconds <= 0 {
		return &ConfigError{Field: "cache.summaryTtlSeconds", Message: "must be positive"}
	}
	if c.Cache.GraphTTLSeconds <= 0 {
		return &ConfigError{Field: "cache.graphTtlSeconds", Message: "must be positive"}
	}
	if c.Graph.MaxDepth <= 0 {
		return &ConfigError{Field: "graph.maxDepth", Message: "must be positive"}
	}

	switch c.Cache.Backend {
	case "memory", "sqlite", "file":
	case "nats":
		if c.Cache.NATS.URL == "" || c.Cache.NATS.Bucket == "" {
			return &ConfigError{Field: "cache.nats", Message: "url and bucket are required"}
		}
	case "s3":
		if c.Cache.S3.Bucket == "" {
			return &ConfigError{Field: "cache.s3.bucket", Message: "required for the s3 backend"}
		}
	default:
		return &ConfigError{Field: "cache.backend", Message: fmt.Sprintf("unknown backend %q", c.Cache.Backend)}
	}

	return nil
}

// Addr returns host:port for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
