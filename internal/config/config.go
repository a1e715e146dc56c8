package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Server struct {
	Port int `yaml:"port"`
}

type Model struct {
	Path         string `yaml:"path"`
	MetadataPath string `yaml:"metadata_path"`
	URL          string `yaml:"url"`
	LibraryPath  string `yaml:"library_path"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connection_string"`
}

type Cache struct {
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Model    Model    `yaml:"model"`
	Database Database `yaml:"database"`
	Cache    Cache    `yaml:"cache"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{Port: 8080},
		Model: Model{
			Path:         "models/model.onnx",
			MetadataPath: "models/model_metadata.json",
		},
		Database: Database{Type: "sqlite", ConnectionString: "alzheimers.db"},
		Cache:    Cache{TTL: 30 * time.Minute},
		Log:      Log{Level: "info"},
	}
}

// Load reads path (CONFIG_PATH when path is empty, then config.yaml) on top
// of the defaults and applies environment overrides. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
		if env := os.Getenv("CONFIG_PATH"); env != "" {
			path = env
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	envOverride(&cfg.Model.Path, "MODEL_PATH")
	envOverride(&cfg.Model.MetadataPath, "MODEL_METADATA_PATH")
	envOverride(&cfg.Model.URL, "MODEL_URL")
	envOverride(&cfg.Model.LibraryPath, "ONNXRUNTIME_LIB")
	envOverride(&cfg.Database.Type, "DATABASE_DRIVER")
	envOverride(&cfg.Database.ConnectionString, "DATABASE_DSN")
	envOverride(&cfg.Cache.RedisAddr, "REDIS_ADDR")
	envOverride(&cfg.Log.Level, "LOG_LEVEL")
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}
