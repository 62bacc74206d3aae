package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/resilience"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/upload"
)

// EnvPrefix namespaces environment overrides, e.g. AIVD_SERVER_ADDR
const EnvPrefix = "AIVD"

// Config is the complete runtime configuration shared by the server and the CLI
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Upload    UploadConfig    `mapstructure:"upload" yaml:"upload"`
	Fetch     FetchConfig     `mapstructure:"fetch" yaml:"fetch"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	CLI       CLIConfig       `mapstructure:"cli" yaml:"cli"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
	EnableHSTS      bool          `mapstructure:"enable_hsts" yaml:"enable_hsts"`
}

type UploadConfig struct {
	Dir               string        `mapstructure:"dir" yaml:"dir"`
	MaxBytes          int64         `mapstructure:"max_bytes" yaml:"max_bytes"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
	Keep              bool          `mapstructure:"keep" yaml:"keep"`           // keep files after scoring
	Retention         time.Duration `mapstructure:"retention" yaml:"retention"` // kept files older than this are swept; 0 disables
}

type FetchConfig struct {
	Backend      string        `mapstructure:"backend" yaml:"backend"` // page or ytdlp
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	YTDLPPath    string        `mapstructure:"ytdlp_path" yaml:"ytdlp_path"`
	Breaker      BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout" yaml:"recovery_timeout"`
	SuccessThreshold int           `mapstructure:"success_threshold" yaml:"success_threshold"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int    `mapstructure:"burst" yaml:"burst"`
	RedisAddr         string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db" yaml:"redis_db"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type CLIConfig struct {
	VideoDir string `mapstructure:"video_dir" yaml:"video_dir"` // empty means ~/Documents/Ai detector
}

// BreakerSettings converts to the resilience package's config
func (b BreakerConfig) BreakerSettings() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		FailureThreshold: b.FailureThreshold,
		RecoveryTimeout:  b.RecoveryTimeout,
		SuccessThreshold: b.SuccessThreshold,
	}
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5000"},
			TrustedProxies:  []string{"127.0.0.1", "::1"},
		},
		Upload: UploadConfig{
			Dir:               "uploads",
			MaxBytes:          upload.DefaultMaxBytes,
			AllowedExtensions: append([]string{}, upload.DefaultAllowedExtensions...),
			Retention:         24 * time.Hour,
		},
		Fetch: FetchConfig{
			Backend:      "ytdlp",
			Timeout:      30 * time.Second,
			UserAgent:    "ai-video-detector/1.0",
			MaxBodyBytes: 5 << 20,
			YTDLPPath:    "yt-dlp",
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				RecoveryTimeout:  30 * time.Second,
				SuccessThreshold: 1,
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults registers every key so env overrides apply even without a config file
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.trusted_proxies", d.Server.TrustedProxies)
	v.SetDefault("server.enable_hsts", d.Server.EnableHSTS)

	v.SetDefault("upload.dir", d.Upload.Dir)
	v.SetDefault("upload.max_bytes", d.Upload.MaxBytes)
	v.SetDefault("upload.allowed_extensions", d.Upload.AllowedExtensions)
	v.SetDefault("upload.keep", d.Upload.Keep)
	v.SetDefault("upload.retention", d.Upload.Retention)

	v.SetDefault("fetch.backend", d.Fetch.Backend)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.ytdlp_path", d.Fetch.YTDLPPath)
	v.SetDefault("fetch.breaker.failure_threshold", d.Fetch.Breaker.FailureThreshold)
	v.SetDefault("fetch.breaker.recovery_timeout", d.Fetch.Breaker.RecoveryTimeout)
	v.SetDefault("fetch.breaker.success_threshold", d.Fetch.Breaker.SuccessThreshold)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("rate_limit.enabled", d.RateLimit.Enabled)
	v.SetDefault("rate_limit.requests_per_minute", d.RateLimit.RequestsPerMinute)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("rate_limit.redis_addr", d.RateLimit.RedisAddr)
	v.SetDefault("rate_limit.redis_password", d.RateLimit.RedisPassword)
	v.SetDefault("rate_limit.redis_db", d.RateLimit.RedisDB)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("cli.video_dir", d.CLI.VideoDir)
}

// DefaultConfigPath is where `config init` writes and Load looks when no file is given
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".aivd", "config.yaml"), nil
}

// Load resolves configuration from defaults, an optional YAML file, AIVD_* environment
// variables and any flags already bound to v, in increasing priority.
// A missing default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, apperrors.NewConfigurationError("Failed to read config file", err)
		}
	} else if path, err := DefaultConfigPath(); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Config{}, apperrors.NewConfigurationError("Failed to read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, apperrors.NewConfigurationError("Failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate rejects configurations the server or CLI cannot run with
func (c Config) Validate() error {
	var problems []error

	if c.Server.Addr == "" {
		problems = append(problems, errors.New("server.addr must be set"))
	}
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, errors.New("upload.max_bytes must be positive"))
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		problems = append(problems, errors.New("upload.allowed_extensions must not be empty"))
	}
	if c.Upload.Retention < 0 {
		problems = append(problems, errors.New("upload.retention must not be negative"))
	}
	if c.Fetch.Backend != "page" && c.Fetch.Backend != "ytdlp" {
		problems = append(problems, fmt.Errorf("fetch.backend must be page or ytdlp, got %q", c.Fetch.Backend))
	}
	if c.Fetch.Timeout <= 0 {
		problems = append(problems, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		problems = append(problems, errors.New("fetch.max_body_bytes must be positive"))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		problems = append(problems, errors.New("cache.ttl must be positive when the cache is enabled"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		problems = append(problems, errors.New("rate_limit.requests_per_minute must be positive"))
	}
	if c.RateLimit.Burst < 0 {
		problems = append(problems, errors.New("rate_limit.burst must not be negative"))
	}

	if len(problems) > 0 {
		return apperrors.NewConfigurationError("Invalid configuration", errors.Join(problems...))
	}
	return nil
}

// ResolveVideoDir returns the directory the interactive CLI lists videos from
func (c Config) ResolveVideoDir() string {
	if c.CLI.VideoDir != "" {
		return expandHome(c.CLI.VideoDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Documents", "Ai detector")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
