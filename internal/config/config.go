package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OPENBARCODE"

type Config struct {
	APIURL           string        `mapstructure:"api_url"`
	OFFURL           string        `mapstructure:"off_url"`
	OFFRatePerMinute int           `mapstructure:"off_rate_per_minute"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`
	BrandDebounce    time.Duration `mapstructure:"brand_debounce"`
	Log              LogConfig     `mapstructure:"log"`
	Stub             StubConfig    `mapstructure:"stub"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type StubConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"api-url":      "api_url",
	"off-url":      "off_url",
	"http-timeout": "http_timeout",
	"log-mode":     "log.mode",
	"log-level":    "log.level",
	"addr":         "stub.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("off_url", "https://world.openfoodfacts.org")
	v.SetDefault("off_rate_per_minute", 100)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("brand_debounce", 500*time.Millisecond)
	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("stub.addr", ":8000")
}

// Load resolves the configuration from flags, OPENBARCODE_* environment
// variables, an optional openbarcode.yaml and built-in defaults, in that order
// of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := readConfigFile(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.OFFURL = strings.TrimRight(cfg.OFFURL, "/")

	if cfg.APIURL == "" {
		return nil, errors.New("api_url must not be empty")
	}
	if cfg.OFFRatePerMinute <= 0 {
		return nil, errors.New("off_rate_per_minute must be greater than zero")
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}
			return nil
		}
	}

	v.SetConfigName("openbarcode")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/openbarcode")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
