// Package config loads the assetpipe application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/assetpipe/internal/builder"
	"git.home.luguber.info/inful/assetpipe/internal/cache"
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/retry"
)

const (
	DefaultManifest        = "assets.yaml"
	DefaultBuildDirectory  = "var/build"
	DefaultPublicDirectory = "public/assets"
	DefaultPublicURL       = "/assets"
	DefaultCachePath       = "var/cache.db"
	DefaultNATSURL         = "nats://127.0.0.1:4222"
	DefaultBucket          = "assetpipe"
	DefaultNamespace       = "assetpipe"
	DefaultPurgeInterval   = 10 * time.Minute
	DefaultServerAddr      = ":8080"
)

// Config is the root configuration document.
type Config struct {
	Manifest        string        `yaml:"manifest"`
	SourceRoot      string        `yaml:"source_root,omitempty"`
	BuildDirectory  string        `yaml:"build_directory"`
	PublicDirectory string        `yaml:"public_directory"`
	PublicURL       string        `yaml:"public_url"`
	Strict          *bool         `yaml:"strict,omitempty"`
	Build           BuildConfig   `yaml:"build"`
	Cache           CacheConfig   `yaml:"cache"`
	Logging         LoggingConfig `yaml:"logging"`
	Server          ServerConfig  `yaml:"server"`
}

// BuildConfig controls companion outputs.
type BuildConfig struct {
	Precompress []string `yaml:"precompress,omitempty"`
	SourceMaps  bool     `yaml:"source_maps"`
}

// CacheConfig selects the cache store backend.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	Path          string        `yaml:"path,omitempty"`
	NATSURL       string        `yaml:"nats_url,omitempty"`
	Bucket        string        `yaml:"bucket,omitempty"`
	Namespace     string        `yaml:"namespace,omitempty"`
	TTL           time.Duration `yaml:"ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
	Retry         RetryConfig   `yaml:"retry"`
}

// RetryConfig controls reconnect attempts to network cache backends.
type RetryConfig struct {
	Backoff    string        `yaml:"backoff,omitempty"`
	Initial    time.Duration `yaml:"initial,omitempty"`
	Max        time.Duration `yaml:"max,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"`
}

// IsStrict reports whether registration rejects unknown enum values.
func (c *Config) IsStrict() bool {
	return c.Strict == nil || *c.Strict
}

// Load reads a configuration file. A .env file in the working directory is
// loaded first; variables already set in the environment win. ${VAR}
// references in the file are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load .env").Build()
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, foundationerrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(configPath))
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to unmarshal config").Build()
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) normalize() {
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
	if backend, err := cache.ParseBackend(c.Cache.Backend); err == nil && c.Cache.Backend != "" {
		c.Cache.Backend = string(backend)
	}
}

func (c *Config) applyDefaults() {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.BuildDirectory == "" {
		c.BuildDirectory = DefaultBuildDirectory
	}
	if c.PublicDirectory == "" {
		c.PublicDirectory = DefaultPublicDirectory
	}
	if c.PublicURL == "" {
		c.PublicURL = DefaultPublicURL
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = string(cache.BackendMemory)
	}
	if c.Cache.Path == "" && c.Cache.Backend == string(cache.BackendSQLite) {
		c.Cache.Path = DefaultCachePath
	}
	if c.Cache.NATSURL == "" && c.Cache.Backend == string(cache.BackendNATS) {
		c.Cache.NATSURL = DefaultNATSURL
	}
	if c.Cache.Bucket == "" {
		c.Cache.Bucket = DefaultBucket
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = DefaultNamespace
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	if c.Cache.PurgeInterval == 0 {
		c.Cache.PurgeInterval = DefaultPurgeInterval
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// resolvePaths anchors relative paths at the directory holding the config file.
func (c *Config) resolvePaths(base string) {
	if base == "" || base == "." {
		return
	}
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Manifest = anchor(c.Manifest)
	c.BuildDirectory = anchor(c.BuildDirectory)
	c.PublicDirectory = anchor(c.PublicDirectory)
	if c.Cache.Path != ":memory:" {
		c.Cache.Path = anchor(c.Cache.Path)
	}
	if c.SourceRoot == "" {
		c.SourceRoot = base
	} else {
		c.SourceRoot = anchor(c.SourceRoot)
	}
}

// Validate reports the first configuration problem as a config error.
func (c *Config) Validate() error {
	if c.BuildDirectory == "" {
		return foundationerrors.ConfigError("build_directory must not be empty").Build()
	}
	if c.PublicDirectory == "" {
		return foundationerrors.ConfigError("public_directory must not be empty").Build()
	}
	if _, err := cache.ParseBackend(c.Cache.Backend); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid cache.backend").
			WithContext("value", c.Cache.Backend).
			Build()
	}
	if c.Cache.TTL < 0 {
		return foundationerrors.ConfigError("cache.ttl must not be negative").Build()
	}
	if c.Cache.PurgeInterval < 0 {
		return foundationerrors.ConfigError("cache.purge_interval must not be negative").Build()
	}
	if _, err := retry.ParseBackoffMode(c.Cache.Retry.Backoff); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid cache.retry.backoff").
			WithContext("value", c.Cache.Retry.Backoff).
			Build()
	}
	if c.Cache.Retry.MaxRetries != nil && *c.Cache.Retry.MaxRetries < 0 {
		return foundationerrors.ConfigError("cache.retry.max_retries must not be negative").Build()
	}
	for _, enc := range c.Build.Precompress {
		if _, err := builder.ParseEncoding(enc); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid build.precompress entry").
				WithContext("value", enc).
				Build()
		}
	}
	return nil
}

// BuilderSettings converts the build section into builder.Settings.
func (c *Config) BuilderSettings() builder.Settings {
	encodings := make([]builder.Encoding, 0, len(c.Build.Precompress))
	for _, raw := range c.Build.Precompress {
		if enc, err := builder.ParseEncoding(raw); err == nil {
			encodings = append(encodings, enc)
		}
	}
	return builder.Settings{
		BuildDir:    c.BuildDirectory,
		PublicDir:   c.PublicDirectory,
		PublicURL:   c.PublicURL,
		Precompress: encodings,
		SourceMaps:  c.Build.SourceMaps,
		SourceRoot:  c.SourceRoot,
	}
}

// CacheOptions converts the cache section into cache.Options.
func (c *Config) CacheOptions() cache.Options {
	backend, _ := cache.ParseBackend(c.Cache.Backend)
	return cache.Options{
		Backend: backend,
		Path:    c.Cache.Path,
		NATSURL: c.Cache.NATSURL,
		Bucket:  c.Cache.Bucket,
		TTL:     c.Cache.TTL,
		Retry:   c.RetryPolicy(),
	}
}

// RetryPolicy converts the cache.retry section. Unset fields take the
// retry package defaults.
func (c *Config) RetryPolicy() retry.Policy {
	mode, _ := retry.ParseBackoffMode(c.Cache.Retry.Backoff)
	maxRetries := -1
	if c.Cache.Retry.MaxRetries != nil {
		maxRetries = *c.Cache.Retry.MaxRetries
	}
	return retry.NewPolicy(mode, c.Cache.Retry.Initial, c.Cache.Retry.Max, maxRetries)
}

const sampleConfig = `# assetpipe configuration
manifest: assets.yaml
build_directory: var/build
public_directory: public/assets
public_url: /assets
strict: true

build:
  precompress: [gzip, zstd]
  source_maps: true

cache:
  backend: sqlite
  path: var/cache.db
  namespace: assetpipe
  ttl: 24h
  purge_interval: 10m
  # nats_url: ${NATS_URL}
  # bucket: assetpipe
  retry:
    backoff: exponential
    initial: 500ms
    max: 5s
    max_retries: 3

logging:
  level: info
  format: text

server:
  addr: ":8080"
  watch: true
`

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return foundationerrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).
			Build()
	}
	if err := os.WriteFile(configPath, []byte(sampleConfig), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
