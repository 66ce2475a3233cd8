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

	"github.com/angeloszaimis/variant-edge/internal/rewrite"
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

// Rewrite engine names accepted by rewrite.engine.
const (
	EngineStream = rewrite.EngineStream
	EngineDOM    = rewrite.EngineDOM
)

// DefaultVariantsEndpoint is the public variants API the handler was built against.
const DefaultVariantsEndpoint = "https://cfw-takehome.developers.workers.dev/api/variants"

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type VariantsConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Timeout  string `mapstructure:"timeout"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

type OriginConfig struct {
	Timeout          string `mapstructure:"timeout"`
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	BreakerReset     string `mapstructure:"breaker_reset"`
}

type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Path   string `mapstructure:"path"`
	MaxAge int    `mapstructure:"max_age"`
}

type RewriteConfig struct {
	Engine string `mapstructure:"engine"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Variants VariantsConfig `mapstructure:"variants"`
	Origin   OriginConfig   `mapstructure:"origin"`
	Cookie   CookieConfig   `mapstructure:"cookie"`
	Rewrite  RewriteConfig  `mapstructure:"rewrite"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("variants.endpoint", DefaultVariantsEndpoint)
	v.SetDefault("variants.timeout", "10s")
	v.SetDefault("variants.max_bytes", 1<<20)
	v.SetDefault("origin.timeout", "15s")
	v.SetDefault("origin.breaker_threshold", 5)
	v.SetDefault("origin.breaker_reset", "30s")
	v.SetDefault("cookie.name", "variant")
	v.SetDefault("cookie.path", "")
	v.SetDefault("cookie.max_age", 0)
	v.SetDefault("rewrite.engine", EngineStream)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("metrics.buffer_size", 1024)
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (VARIANTS_ENDPOINT, COOKIE_NAME, ...) and validates
// the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.By(func(value interface{}) error {
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
				validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
				validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
				validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
			)
		})),
		validation.Field(&c.Variants, validation.By(func(value interface{}) error {
			vc, ok := value.(VariantsConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a VariantsConfig")
			}
			return validation.ValidateStruct(&vc,
				validation.Field(&vc.Endpoint, validation.Required, validation.By(validateHTTPURL)),
				validation.Field(&vc.Timeout, validation.Required, validation.By(validateDuration)),
				validation.Field(&vc.MaxBytes, validation.Required, validation.Min(int64(1))),
			)
		})),
		validation.Field(&c.Origin, validation.By(func(value interface{}) error {
			oc, ok := value.(OriginConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an OriginConfig")
			}
			return validation.ValidateStruct(&oc,
				validation.Field(&oc.Timeout, validation.Required, validation.By(validateDuration)),
				validation.Field(&oc.BreakerThreshold, validation.Min(0)),
				validation.Field(&oc.BreakerReset, validation.Required, validation.By(validateDuration)),
			)
		})),
		validation.Field(&c.Cookie, validation.By(func(value interface{}) error {
			cc, ok := value.(CookieConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a CookieConfig")
			}
			return validation.ValidateStruct(&cc,
				validation.Field(&cc.Name, validation.Required, validation.By(validateCookieName)),
				validation.Field(&cc.MaxAge, validation.Min(0)),
			)
		})),
		validation.Field(&c.Rewrite, validation.By(func(value interface{}) error {
			rc, ok := value.(RewriteConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a RewriteConfig")
			}
			return validation.ValidateStruct(&rc,
				validation.Field(&rc.Engine, validation.Required, validation.In(EngineStream, EngineDOM)),
			)
		})),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
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
		})),
		validation.Field(&c.Metrics, validation.By(func(value interface{}) error {
			mc, ok := value.(MetricsConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
			}
			return validation.ValidateStruct(&mc,
				validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
			)
		})),
	)
}

// Duration parses a duration that Validate has already accepted.
// Unparseable input yields zero.
func Duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
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

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateHTTPURL(value interface{}) error {
	rawURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

// validateCookieName accepts RFC 6265 token characters only.
func validateCookieName(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return validation.NewError("validation_invalid_cookie_name", "must be a cookie token")
		}
	}

	return nil
}
