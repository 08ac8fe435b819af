package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	RegistryType       string        `mapstructure:"registry_type"`
	RegistryAddr       string        `mapstructure:"registry_addr"`
	RegistryToken      string        `mapstructure:"registry_token"`
	RegistryFile       string        `mapstructure:"registry_file"`
	RegistryPrefix     string        `mapstructure:"registry_prefix"`
	BBoltPath          string        `mapstructure:"bbolt_path"`
	RegistryTTLSeconds int64         `mapstructure:"registry_ttl_seconds"`
	RegistryTTL        time.Duration `mapstructure:"-"`

	SelectionPolicy string `mapstructure:"selection_policy"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-resttemplate")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("registry_type", "consul")
	v.SetDefault("registry_addr", "")
	v.SetDefault("registry_token", "")
	v.SetDefault("registry_file", "./configs/instances.yaml")
	v.SetDefault("registry_prefix", "instance")
	v.SetDefault("bbolt_path", "./data/registry.db")
	v.SetDefault("registry_ttl_seconds", 60)
	v.SetDefault("selection_policy", "tick")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	cfg.RegistryType = strings.ToLower(strings.TrimSpace(cfg.RegistryType))
	cfg.RegistryAddr = strings.TrimSpace(cfg.RegistryAddr)

	switch cfg.RegistryType {
	case "consul", "redis", "http":
		if cfg.RegistryAddr == "" {
			return fmt.Errorf("registry_addr is required for %s registry", cfg.RegistryType)
		}
	case "bbolt":
		if strings.TrimSpace(cfg.BBoltPath) == "" {
			return fmt.Errorf("bbolt_path is required for bbolt registry")
		}
	case "file":
		if strings.TrimSpace(cfg.RegistryFile) == "" {
			return fmt.Errorf("registry_file is required for file registry")
		}
	default:
		return fmt.Errorf("invalid registry_type %q", cfg.RegistryType)
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.RegistryTTLSeconds <= 0 {
		return fmt.Errorf("invalid registry_ttl_seconds (must be positive seconds)")
	}
	cfg.RegistryTTL = time.Duration(cfg.RegistryTTLSeconds) * time.Second

	return nil
}
