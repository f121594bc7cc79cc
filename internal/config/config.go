package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name      string `yaml:"name"`
		Port      string `yaml:"port"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`

		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"app"`

	CafeAPI struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"cafe_api"`

	Session struct {
		CookieName string        `yaml:"cookie_name"`
		IdleTTL    time.Duration `yaml:"idle_ttl"`
		Secure     bool          `yaml:"secure"`
	} `yaml:"session"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Name = "storefront"
	cfg.App.Port = "8080"
	cfg.App.LogLevel = "info"
	cfg.App.LogFormat = "console"
	cfg.CafeAPI.BaseURL = "http://localhost:5050"
	cfg.CafeAPI.Timeout = 10 * time.Second
	cfg.Session.CookieName = "storefront_session"
	cfg.Session.IdleTTL = 2 * time.Hour
	return cfg
}

// Load builds the configuration from defaults, then the optional YAML file,
// then the optional .env file and the process environment.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		file, err := os.Open(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
	}

	if envPath != "" {
		err := godotenv.Load(envPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.LogFormat, "LOG_FORMAT")
	setString(&cfg.CafeAPI.BaseURL, "CAFE_API_URL")
	setString(&cfg.Session.CookieName, "SESSION_COOKIE")

	if err := setDuration(&cfg.CafeAPI.Timeout, "CAFE_API_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Session.IdleTTL, "SESSION_IDLE_TTL"); err != nil {
		return err
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.App.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.App.AllowedOrigins = append(cfg.App.AllowedOrigins, origin)
			}
		}
	}
	if v := os.Getenv("SESSION_SECURE"); v != "" {
		cfg.Session.Secure = v == "true" || v == "1"
	}
	return nil
}

func (c *Config) Validate() error {
	if c.App.Port == "" {
		return errors.New("APP_PORT is required")
	}
	u, err := url.Parse(c.CafeAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CAFE_API_URL must be an absolute URL, got %q", c.CafeAPI.BaseURL)
	}
	if c.CafeAPI.Timeout <= 0 {
		return errors.New("CAFE_API_TIMEOUT must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("SESSION_COOKIE is required")
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be positive")
	}
	switch c.App.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.App.LogFormat)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
