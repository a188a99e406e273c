package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable, e.g. SENTIMENT_SERVER_PORT.
const EnvPrefix = "SENTIMENT"

// Model backends
const (
	BackendEmbedded = "embedded"
	BackendRemote   = "remote"
)

// Config holds the service configuration
type Config struct {
	Server ServerConfig
	Model  ModelConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server and worker pool settings
type ServerConfig struct {
	Host            string        `default:"0.0.0.0"`
	Port            int           `default:"5000"`
	Mode            string        `default:"release"`
	Workers         int           `default:"0"`
	QueueSize       int           `split_words:"true" default:"64"`
	ReadTimeout     time.Duration `split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
}

// ModelConfig holds model loading and inference settings
type ModelConfig struct {
	Backend        string `default:"embedded"`
	ID             string `default:"sst2-lexicon-uncased"`
	Path           string
	SHA256         string
	Device         string        `default:"cpu"`
	BackendURL     string        `split_words:"true"`
	RequestTimeout time.Duration `split_words:"true" default:"10s"`
	LoadTimeout    time.Duration `split_words:"true" default:"2m"`
	MaxTextLength  int           `split_words:"true" default:"10000"`
	MaxBatchSize   int           `split_words:"true" default:"32"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

// Load reads configuration from the environment, after loading an optional .env file.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = runtime.NumCPU()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port out of range: %d", c.Server.Port))
	}
	if c.Server.Workers <= 0 {
		errs = append(errs, errors.New("server workers must be positive"))
	}
	switch c.Server.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("unknown server mode %q", c.Server.Mode))
	}
	if c.Server.QueueSize < 0 {
		errs = append(errs, errors.New("server queue size must not be negative"))
	}

	switch c.Model.Backend {
	case BackendEmbedded:
	case BackendRemote:
		if c.Model.BackendURL == "" {
			errs = append(errs, errors.New("model backend url is required for the remote backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model backend %q", c.Model.Backend))
	}

	if c.Model.MaxTextLength <= 0 {
		errs = append(errs, errors.New("model max text length must be positive"))
	}
	if c.Model.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("model max batch size must be positive"))
	}
	if c.Model.LoadTimeout <= 0 {
		errs = append(errs, errors.New("model load timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
