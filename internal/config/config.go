package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/veil/internal/cipher"
	"github.com/RowanDark/veil/internal/env"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendEtcd   = "etcd"
)

// MaxNoiseLevel is the highest noise level accepted from configuration and
// clients.
const MaxNoiseLevel = 2

// Config captures the veil configuration resolved from defaults, optional
// files, and environment overrides.
type Config struct {
	ServerAddr string         `yaml:"server_addr"`
	AuthToken  string         `yaml:"auth_token"`
	AuditLog   string         `yaml:"audit_log"`
	Store      StoreConfig    `yaml:"store"`
	Defaults   DefaultsConfig `yaml:"defaults"`
}

// StoreConfig selects where named protocols are kept.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`

	EtcdEndpoints []string `yaml:"etcd_endpoints"`
	EtcdPrefix    string   `yaml:"etcd_prefix"`
}

// DefaultsConfig holds the options applied when a request leaves them out.
type DefaultsConfig struct {
	ProtocolID      string `yaml:"protocol_id"`
	NoiseLevel      int    `yaml:"noise_level"`
	StripWhitespace bool   `yaml:"strip_whitespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerAddr: "127.0.0.1:50061",
		Store: StoreConfig{
			Backend:     BackendFile,
			Path:        defaultStorePath(),
			RedisURL:    "redis://localhost:6379",
			RedisPrefix: "veil",
			EtcdPrefix:  "/veil",
		},
		Defaults: DefaultsConfig{
			ProtocolID: cipher.LegacyID,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".veil", "protocols")
	}
	return filepath.Join(home, ".veil", "protocols")
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. The lookup order for configuration files is:
//  1. ~/.veil/config.yaml
//  2. ./veil.yml
//
// Environment variables prefixed with VEIL_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		if err := applyFile(&cfg, filepath.Join(home, ".veil", "config.yaml"), false); err != nil {
			return Config{}, err
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	if err := applyFile(&cfg, filepath.Join(wd, "veil.yml"), false); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile resolves the configuration from defaults, the file at path, and
// environment overrides. The file must exist.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := applyFile(&cfg, path, true); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration values the service cannot run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path is required for the file backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Store.RedisURL) == "" {
			return errors.New("store.redis_url is required for the redis backend")
		}
	case BackendEtcd:
		if len(c.Store.EtcdEndpoints) == 0 {
			return errors.New("store.etcd_endpoints is required for the etcd backend")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	if c.Defaults.NoiseLevel < 0 || c.Defaults.NoiseLevel > MaxNoiseLevel {
		return fmt.Errorf("defaults.noise_level must be between 0 and %d, got %d", MaxNoiseLevel, c.Defaults.NoiseLevel)
	}
	if strings.TrimSpace(c.Defaults.ProtocolID) == "" {
		return errors.New("defaults.protocol_id cannot be empty")
	}
	return nil
}

func applyFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.trim()
	return nil
}

func (c *Config) trim() {
	c.ServerAddr = strings.TrimSpace(c.ServerAddr)
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.AuditLog = strings.TrimSpace(c.AuditLog)
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Store.Path = strings.TrimSpace(c.Store.Path)
	c.Store.RedisURL = strings.TrimSpace(c.Store.RedisURL)
	c.Store.EtcdEndpoints = splitList(strings.Join(c.Store.EtcdEndpoints, ","))
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyEnvOverrides(cfg *Config) error {
	if val, ok := env.Get("SERVER"); ok {
		cfg.ServerAddr = val
	}
	if val, ok := env.Get("AUTH_TOKEN"); ok {
		cfg.AuthToken = val
	}
	if val, ok := env.Get("AUDIT_LOG"); ok {
		cfg.AuditLog = val
	}
	if val, ok := env.Get("STORE_BACKEND"); ok {
		cfg.Store.Backend = strings.ToLower(val)
	}
	if val, ok := env.Get("STORE_PATH"); ok {
		cfg.Store.Path = val
	}
	if val, ok := env.Get("REDIS_URL"); ok {
		cfg.Store.RedisURL = val
	}
	if val, ok := env.Get("ETCD_ENDPOINTS"); ok {
		cfg.Store.EtcdEndpoints = splitList(val)
	}
	if val, ok := env.Get("PROTOCOL"); ok {
		cfg.Defaults.ProtocolID = val
	}
	if val, ok := env.Get("NOISE_LEVEL"); ok {
		level, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parse %sNOISE_LEVEL: %w", env.Prefix, err)
		}
		cfg.Defaults.NoiseLevel = level
	}
	if val, ok := env.Get("STRIP_WHITESPACE"); ok {
		strip, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parse %sSTRIP_WHITESPACE: %w", env.Prefix, err)
		}
		cfg.Defaults.StripWhitespace = strip
	}
	return nil
}
