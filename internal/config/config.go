package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"moderation-service/internal/llm"
	"moderation-service/internal/logger"
	"moderation-service/internal/service"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is not set
const DefaultPath = "configs/config.yml"

// Config holds application configuration
type Config struct {
	Server struct {
		Port    string `yaml:"port"`
		GinMode string `yaml:"gin_mode"`
	} `yaml:"server"`

	Logging logger.Config `yaml:"logging"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Primary moderation classifier service
	Classifier struct {
		URL           string                `yaml:"url"`
		Timeout       time.Duration         `yaml:"timeout"`
		HealthTimeout time.Duration         `yaml:"health_timeout"`
		Breaker       service.BreakerConfig `yaml:"breaker"`
	} `yaml:"classifier"`

	// Generative fallbacks, tried in order after the primary
	Providers []llm.ProviderConfig `yaml:"providers"`

	// Legacy single provider config, used when Providers is empty
	Gemini struct {
		APIKey    string `yaml:"api_key"`
		ModelName string `yaml:"model_name"`
	} `yaml:"gemini"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Events struct {
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"events"`

	Moderation struct {
		DefaultPlatform string `yaml:"default_platform"`
	} `yaml:"moderation"`
}

// Load reads .env (ENV_FILE, default .env), then the YAML file at CONFIG_PATH
// or DefaultPath, then environment overrides. Missing files are not errors.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadConfig(path)
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides and defaults
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	config.applyEnv()
	config.setDefaults()

	// Expand environment variables in provider API keys
	for i := range config.Providers {
		config.Providers[i].APIKey = os.ExpandEnv(config.Providers[i].APIKey)
	}
	config.Gemini.APIKey = os.ExpandEnv(config.Gemini.APIKey)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// GenerativeProviders returns the fallback chain configuration. The legacy
// gemini section is used when no providers are listed and a key is present.
func (c *Config) GenerativeProviders() []llm.ProviderConfig {
	if len(c.Providers) > 0 {
		return c.Providers
	}
	if c.Gemini.APIKey == "" || c.Gemini.APIKey == "YOUR_API_KEY_HERE" {
		return nil
	}
	return []llm.ProviderConfig{{
		Type:      llm.ProviderGemini,
		APIKey:    c.Gemini.APIKey,
		ModelName: c.Gemini.ModelName,
	}}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("AI_SERVICE_URL"); v != "" {
		c.Classifier.URL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "3000"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/mindshield.db"
	}
	if c.Classifier.URL == "" {
		c.Classifier.URL = "http://localhost:5000"
	}
	if c.Classifier.Timeout == 0 {
		c.Classifier.Timeout = 30 * time.Second
	}
	if c.Classifier.HealthTimeout == 0 {
		c.Classifier.HealthTimeout = 3 * time.Second
	}
	if c.Classifier.Breaker.MaxFailures == 0 {
		c.Classifier.Breaker.MaxFailures = 5
	}
	if c.Classifier.Breaker.OpenTimeout == 0 {
		c.Classifier.Breaker.OpenTimeout = 30 * time.Second
	}
	if c.Gemini.ModelName == "" {
		c.Gemini.ModelName = "gemini-2.0-flash"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Events.PollInterval == 0 {
		c.Events.PollInterval = time.Second
	}
	if c.Moderation.DefaultPlatform == "" {
		c.Moderation.DefaultPlatform = "twitter"
	}
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode %q", c.Server.GinMode)
	}
	for i, p := range c.Providers {
		switch p.Type {
		case llm.ProviderGemini, llm.ProviderGroq, llm.ProviderOpenRouter:
		default:
			return fmt.Errorf("providers[%d]: unknown type %q", i, p.Type)
		}
	}
	return nil
}
