// Package config loads settings from defaults, an optional YAML file, a
// .env file and RMC_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/insightdelivered/rmc-recalc/internal/engine"
	"github.com/insightdelivered/rmc-recalc/internal/parser"
)

// EnvPrefix is prepended to every environment override, e.g.
// RMC_SERVER_ADDR or RMC_ENGINE_DOUBLE_CUTOFF.
const EnvPrefix = "RMC"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Rates  RatesConfig  `mapstructure:"rates"`
	Parser ParserConfig `mapstructure:"parser"`
	Engine EngineConfig `mapstructure:"engine"`
	OCR    OCRConfig    `mapstructure:"ocr"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	BodyLimit int    `mapstructure:"body_limit"` // bytes
}

// RatesConfig points at the Banco Central SGS API. Series is the SGS code
// of the monthly average rate used as reference.
type RatesConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Series  int           `mapstructure:"series"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ParserConfig struct {
	Markers       []string `mapstructure:"markers"`
	NoiseKeywords []string `mapstructure:"noise_keywords"`
	MinAmount     string   `mapstructure:"min_amount"`
	MaxAmount     string   `mapstructure:"max_amount"`
	MinYear       int      `mapstructure:"min_year"`
	MaxYear       int      `mapstructure:"max_year"`
}

type EngineConfig struct {
	DoubleCutoff     string `mapstructure:"double_cutoff"` // YYYY-MM-DD
	DoubleMultiplier string `mapstructure:"double_multiplier"`
}

type OCRConfig struct {
	Language string `mapstructure:"language"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.body_limit", 20*1024*1024)

	v.SetDefault("rates.base_url", "https://api.bcb.gov.br/dados/serie")
	v.SetDefault("rates.series", 25477)
	v.SetDefault("rates.timeout", 10*time.Second)

	popts := parser.DefaultOptions()
	v.SetDefault("parser.markers", popts.Markers)
	v.SetDefault("parser.noise_keywords", popts.NoiseKeywords)
	v.SetDefault("parser.min_amount", popts.MinAmount.String())
	v.SetDefault("parser.max_amount", popts.MaxAmount.String())
	v.SetDefault("parser.min_year", popts.MinYear)
	v.SetDefault("parser.max_year", popts.MaxYear)

	eopts := engine.DefaultOptions()
	v.SetDefault("engine.double_cutoff", eopts.Cutoff.Format("2006-01-02"))
	v.SetDefault("engine.double_multiplier", eopts.Multiplier.String())

	v.SetDefault("ocr.language", "por")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the configuration. An empty path looks for rmc.yaml in the
// working directory and carries on without it; an explicit path must
// exist. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	} else {
		v.SetConfigName("rmc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.EngineOptions(); err != nil {
		return nil, err
	}
	if _, err := cfg.ParserOptions(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// ParserOptions converts the parser section.
func (c *Config) ParserOptions() (parser.Options, error) {
	opts := parser.Options{
		Markers:       c.Parser.Markers,
		NoiseKeywords: c.Parser.NoiseKeywords,
		MinYear:       c.Parser.MinYear,
		MaxYear:       c.Parser.MaxYear,
	}
	var err error
	if opts.MinAmount, err = decimal.NewFromString(c.Parser.MinAmount); err != nil {
		return opts, fmt.Errorf("parser.min_amount: %w", err)
	}
	if opts.MaxAmount, err = decimal.NewFromString(c.Parser.MaxAmount); err != nil {
		return opts, fmt.Errorf("parser.max_amount: %w", err)
	}
	if !opts.MaxAmount.GreaterThan(opts.MinAmount) {
		return opts, fmt.Errorf("parser.max_amount must be greater than parser.min_amount")
	}
	if opts.MaxYear < opts.MinYear {
		return opts, fmt.Errorf("parser.max_year must not be before parser.min_year")
	}
	return opts, nil
}

// EngineOptions converts the engine section.
func (c *Config) EngineOptions() (engine.Options, error) {
	var opts engine.Options
	cutoff, err := time.Parse("2006-01-02", c.Engine.DoubleCutoff)
	if err != nil {
		return opts, fmt.Errorf("engine.double_cutoff: %w", err)
	}
	mult, err := decimal.NewFromString(c.Engine.DoubleMultiplier)
	if err != nil {
		return opts, fmt.Errorf("engine.double_multiplier: %w", err)
	}
	if !mult.IsPositive() {
		return opts, fmt.Errorf("engine.double_multiplier must be positive")
	}
	return engine.Options{Cutoff: cutoff, Multiplier: mult}, nil
}
