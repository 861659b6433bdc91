package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// RouterConfig controls the dispatcher: how many endpoint-level attempts a
// single work item gets, how long one inference call may take, and the
// informational global ceiling that should cover the sum of the per-endpoint
// ceilings.
type RouterConfig struct {
	MaxAttempts           int    `mapstructure:"max_attempts"`
	RequestTimeout        string `mapstructure:"request_timeout"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests"`
	ConnectionPoolSize    int    `mapstructure:"connection_pool_size"`
	DefaultModel          string `mapstructure:"default_model"`
}

// EndpointConfig describes one inference backend. Weight expresses relative
// traffic preference among endpoints of the same tier; MaxConcurrent is a
// hard ceiling on simultaneous in-flight requests. Fallback endpoints only
// receive traffic when every primary endpoint is saturated.
type EndpointConfig struct {
	Name          string `mapstructure:"name"`
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	Weight        int    `mapstructure:"weight"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	Fallback      bool   `mapstructure:"fallback"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Router    RouterConfig     `mapstructure:"router"`
	Endpoints []EndpointConfig `mapstructure:"endpoints"`
	Logging   LoggingConfig    `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8085")
	viper.SetDefault("router.max_attempts", 3)
	viper.SetDefault("router.request_timeout", "120s")
	viper.SetDefault("router.connection_pool_size", 100)
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	// The global ceiling is informational; it emerges from the sum of the
	// per-endpoint gates. Default it to that sum when unset.
	if cfg.Router.MaxConcurrentRequests == 0 {
		cfg.Router.MaxConcurrentRequests = cfg.SumCeilings()
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// SumCeilings returns the sum of all per-endpoint concurrency ceilings.
func (c *Config) SumCeilings() int {
	total := 0
	for _, ep := range c.Endpoints {
		total += ep.MaxConcurrent
	}
	return total
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Router,
			validation.Required,
			validation.By(c.validateRouterConfig),
		),
		validation.Field(&c.Endpoints,
			validation.Required,
			validation.Length(1, 0),
			validation.By(validateEndpoints),
		),
	)
}

func (c *Config) validateRouterConfig(value interface{}) error {
	rc, ok := value.(RouterConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RouterConfig")
	}

	if err := validation.ValidateStruct(&rc,
		validation.Field(&rc.MaxAttempts,
			validation.Required,
			validation.Min(1),
		),
		validation.Field(&rc.RequestTimeout,
			validation.Required,
			validation.By(validateDuration),
		),
		validation.Field(&rc.ConnectionPoolSize,
			validation.Required,
			validation.Min(1),
		),
	); err != nil {
		return err
	}

	if rc.MaxConcurrentRequests < c.SumCeilings() {
		return validation.NewError("validation_global_ceiling",
			"max_concurrent_requests must cover the sum of per-endpoint ceilings")
	}

	return nil
}

func validateEndpoints(value interface{}) error {
	endpoints, ok := value.([]EndpointConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of EndpointConfig")
	}

	names := make(map[string]bool, len(endpoints))
	for _, ep := range endpoints {
		if err := validateEndpointConfig(ep); err != nil {
			return err
		}
		if names[ep.Name] {
			return validation.NewError("validation_duplicate_name", "endpoint names must be unique")
		}
		names[ep.Name] = true
	}

	return nil
}

func validateEndpointConfig(ep EndpointConfig) error {
	if ep.Name == "" {
		return validation.NewError("validation_empty_name", "endpoint name cannot be empty")
	}

	if ep.URL == "" {
		return validation.NewError("validation_empty_url", "endpoint URL cannot be empty")
	}

	parsedURL, err := url.Parse(ep.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if ep.Weight < 0 {
		return validation.NewError("validation_invalid_weight", "weight cannot be negative")
	}

	if ep.MaxConcurrent < 1 {
		return validation.NewError("validation_invalid_ceiling", "max_concurrent must be at least 1")
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
