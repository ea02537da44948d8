package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Transport modes for the serve command.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// Config defines roadmap tool configuration.
type Config struct {
	Content   ContentConfig   `yaml:"content"`
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
}

// ContentConfig locates the content root and the published output.
type ContentConfig struct {
	Dir       string `yaml:"dir"`
	PublicDir string `yaml:"public_dir"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// DBConfig locates the run ledger. An empty path disables it.
type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Content: ContentConfig{
			Dir:       "_content",
			PublicDir: "public",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: ModeStdio,
		},
		DB: DBConfig{
			Path: "roadmap.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("ROADMAP_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dir := os.Getenv("ROADMAP_CONTENT_DIR"); dir != "" {
		cfg.Content.Dir = dir
	}
	if dir := os.Getenv("ROADMAP_PUBLIC_DIR"); dir != "" {
		cfg.Content.PublicDir = dir
	}
	if host := os.Getenv("ROADMAP_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("ROADMAP_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ROADMAP_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("ROADMAP_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	// Set but empty disables the ledger.
	if dbPath, ok := os.LookupEnv("ROADMAP_DB_PATH"); ok {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("ROADMAP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("ROADMAP_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have a fixed set of values.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Content.Dir) == "" {
		problems = append(problems, "content.dir is required")
	}
	if strings.TrimSpace(c.Content.PublicDir) == "" {
		problems = append(problems, "content.public_dir is required")
	}
	switch c.Transport.Mode {
	case ModeStdio, ModeHTTP:
	default:
		problems = append(problems, fmt.Sprintf("transport.mode must be %q or %q, got %q", ModeStdio, ModeHTTP, c.Transport.Mode))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
