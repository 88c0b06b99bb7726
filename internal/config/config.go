package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Scan       ScanConfig       `yaml:"scan" mapstructure:"scan"`
	Networks   NetworksConfig   `yaml:"networks" mapstructure:"networks"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Classify   ClassifyConfig   `yaml:"classify" mapstructure:"classify"`
	Playbook   PlaybookConfig   `yaml:"playbook" mapstructure:"playbook"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// ScanConfig configures the network scanner.
type ScanConfig struct {
	WindowMonths    int     `yaml:"window_months" mapstructure:"window_months"`
	MaxPosts        int     `yaml:"max_posts" mapstructure:"max_posts"`
	RatePerSecond   float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst           int     `yaml:"burst" mapstructure:"burst"`
	TaskTimeoutSecs int     `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	RetryAttempts   int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	BreakerFailures uint32  `yaml:"breaker_failures" mapstructure:"breaker_failures"`
}

// TaskTimeout returns the per-profile scan timeout.
func (c ScanConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSecs) * time.Second
}

// NetworksConfig holds per-network endpoints and credentials.
type NetworksConfig struct {
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
	Twitter  TwitterConfig  `yaml:"twitter" mapstructure:"twitter"`
	LinkedIn LinkedInConfig `yaml:"linkedin" mapstructure:"linkedin"`
}

// GitHubConfig holds GitHub REST API settings.
type GitHubConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Token   string `yaml:"token" mapstructure:"token"`
}

// TwitterConfig holds X API v2 settings.
type TwitterConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`
}

// LinkedInConfig holds LinkedIn activity lookup settings.
type LinkedInConfig struct {
	ActivitySuffix string `yaml:"activity_suffix" mapstructure:"activity_suffix"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	HaikuModel string `yaml:"haiku_model" mapstructure:"haiku_model"`
}

// ClassifyConfig configures the text classifier.
type ClassifyConfig struct {
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	Workers     int    `yaml:"workers" mapstructure:"workers"`
}

// PlaybookConfig configures the playbook generator.
type PlaybookConfig struct {
	CatalogPath   string `yaml:"catalog_path" mapstructure:"catalog_path"`
	DefaultVendor string `yaml:"default_vendor" mapstructure:"default_vendor"`
}

// PricingConfig holds per-provider pricing rates used for spend estimates.
type PricingConfig struct {
	Anthropic  map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaPricing             `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityPricing       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// JinaPricing holds Jina Reader pricing.
type JinaPricing struct {
	PerMTok float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// PerplexityPricing holds Perplexity pricing.
type PerplexityPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// MonitoringConfig configures run-health alerting while serving.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StuckAfterMins       int     `yaml:"stuck_after_mins" mapstructure:"stuck_after_mins"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PERSONA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "persona.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("scan.window_months", 12)
	v.SetDefault("scan.max_posts", 50)
	v.SetDefault("scan.rate_per_second", 10.0)
	v.SetDefault("scan.burst", 10)
	v.SetDefault("scan.task_timeout_secs", 30)
	v.SetDefault("scan.retry_attempts", 3)
	v.SetDefault("scan.breaker_failures", 5)
	v.SetDefault("networks.github.base_url", "https://api.github.com")
	v.SetDefault("networks.twitter.base_url", "https://api.twitter.com")
	v.SetDefault("networks.linkedin.activity_suffix", "/recent-activity/all/")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("classify.workers", 8)
	v.SetDefault("playbook.default_vendor", "generic")
	v.SetDefault("pricing.jina.per_mtok", 0.02)
	v.SetDefault("pricing.perplexity.per_query", 0.005)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stuck_after_mins", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "resolve",
// "scan", "persona", "playbook", "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported (sqlite, postgres)", c.Store.Driver))
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}

	switch mode {
	case "resolve", "playbook", "migrate":
	case "scan", "persona":
		errs = append(errs, c.Scan.validate()...)
	case "serve":
		errs = append(errs, c.Scan.validate()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c ScanConfig) validate() []string {
	var errs []string
	if c.WindowMonths <= 0 {
		errs = append(errs, "scan.window_months must be > 0")
	}
	if c.MaxPosts <= 0 {
		errs = append(errs, "scan.max_posts must be > 0")
	}
	if c.RatePerSecond <= 0 {
		errs = append(errs, "scan.rate_per_second must be > 0")
	}
	if c.Burst <= 0 {
		errs = append(errs, "scan.burst must be > 0")
	}
	if c.TaskTimeoutSecs <= 0 {
		errs = append(errs, "scan.task_timeout_secs must be > 0")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
