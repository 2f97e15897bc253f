package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment selects build-flavour behavior such as diagnostic logging.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config captures the client-side settings for the capture and audit core.
type Config struct {
	Environment Environment
	// APIBaseURL is the remote API root; audit logs go to APIBaseURL + /api/logs.
	APIBaseURL  string
	Source      string
	HTTPTimeout time.Duration

	Capture    CaptureConfig
	Audit      AuditConfig
	TokenStore TokenStoreConfig
	Redis      RedisConfig
	Sink       SinkConfig
}

// CaptureConfig tunes the capture detector and blocker view.
type CaptureConfig struct {
	Cooldown      time.Duration
	CoverDuration time.Duration
	// DisableOnStop releases OS-level prevention when the app shell stops.
	// Off by default: protection outlives component lifecycles.
	DisableOnStop bool
}

// AuditConfig tunes the audit service and its HTTP client.
type AuditConfig struct {
	ActionDedupeWindow time.Duration
	ScreenViewWindow   time.Duration
	BreakerThreshold   int
	BreakerCooldown    time.Duration
}

// TokenStoreConfig configures the encrypted secure tier.
type TokenStoreConfig struct {
	SecureFile string
	Passphrase string
}

// RedisConfig configures the fallback token tier. An empty URL means the
// fallback tier is process memory.
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SinkConfig configures the development audit endpoint.
type SinkConfig struct {
	Addr          string
	JWTSigningKey string
	Issuer        string
	Retention     int
}

// IsDevelopment reports whether diagnostics should be emitted.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Validate checks invariants FromEnv cannot express through defaults.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid environment %q", c.Environment)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	if c.Capture.Cooldown < 0 || c.Capture.CoverDuration <= 0 {
		return fmt.Errorf("capture windows must be positive")
	}
	if c.Audit.ActionDedupeWindow < 0 || c.Audit.ScreenViewWindow < 0 {
		return fmt.Errorf("audit windows must not be negative")
	}
	return nil
}

var defaults = map[string]any{
	"environment":                "development",
	"api_base_url":               "http://localhost:8080",
	"source":                     "gesflow-manager-mobile",
	"http_timeout":               10 * time.Second,
	"capture.cooldown":           5 * time.Second,
	"capture.cover_duration":     500 * time.Millisecond,
	"capture.disable_on_stop":    false,
	"audit.action_dedupe_window": 3 * time.Second,
	"audit.screen_view_window":   60 * time.Second,
	"audit.breaker_threshold":    5,
	"audit.breaker_cooldown":     time.Minute,
	"token_store.secure_file":    "",
	"token_store.passphrase":     "",
	"redis.url":                  "",
	"redis.key_prefix":           "gesflow:secure:",
	"redis.pool_size":            10,
	"redis.min_idle_conns":       1,
	"redis.dial_timeout":         5 * time.Second,
	"redis.read_timeout":         3 * time.Second,
	"redis.write_timeout":        3 * time.Second,
	"sink.addr":                  ":8080",
	"sink.jwt_signing_key":       "dev-secret-key-change-in-production",
	"sink.issuer":                "gesflow-dev",
	"sink.retention":             1000,
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	cfg, _ := load(newViper())
	return cfg
}

// FromEnv builds a Config from GESFLOW_* environment variables, optionally
// layered over the YAML file named by GESFLOW_CONFIG_FILE.
func FromEnv() (Config, error) {
	v := newViper()
	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	cfg, err := load(v)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("gesflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	_ = v.BindEnv("config_file")
	return v
}

func load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Environment: Environment(strings.ToLower(v.GetString("environment"))),
		APIBaseURL:  strings.TrimRight(v.GetString("api_base_url"), "/"),
		Source:      v.GetString("source"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		Capture: CaptureConfig{
			Cooldown:      v.GetDuration("capture.cooldown"),
			CoverDuration: v.GetDuration("capture.cover_duration"),
			DisableOnStop: v.GetBool("capture.disable_on_stop"),
		},
		Audit: AuditConfig{
			ActionDedupeWindow: v.GetDuration("audit.action_dedupe_window"),
			ScreenViewWindow:   v.GetDuration("audit.screen_view_window"),
			BreakerThreshold:   v.GetInt("audit.breaker_threshold"),
			BreakerCooldown:    v.GetDuration("audit.breaker_cooldown"),
		},
		TokenStore: TokenStoreConfig{
			SecureFile: v.GetString("token_store.secure_file"),
			Passphrase: v.GetString("token_store.passphrase"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			KeyPrefix:    v.GetString("redis.key_prefix"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Sink: SinkConfig{
			Addr:          v.GetString("sink.addr"),
			JWTSigningKey: v.GetString("sink.jwt_signing_key"),
			Issuer:        v.GetString("sink.issuer"),
			Retention:     v.GetInt("sink.retention"),
		},
	}
	return cfg, nil
}
