// Package config loads codeflow settings from a TOML file.
//
// A missing file is not an error: every field has a default, and CLI flags
// override whatever the file sets. Files are decoded over [Default], so a file
// only needs the keys it changes:
//
//	[layout]
//	passes = 48
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// Unknown keys and out-of-range values are rejected with INVALID_CONFIG.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/layout"
)

// Duration is a time.Duration written as a string ("30m", "33ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full configuration.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// LayoutConfig controls the layout engine and its memo.
type LayoutConfig struct {
	NodeSep  float64 `toml:"node_sep" validate:"gt=0"`
	RankSep  float64 `toml:"rank_sep" validate:"gt=0"`
	Passes   int     `toml:"passes" validate:"gte=1,lte=1000"`
	MemoSize int     `toml:"memo_size" validate:"gte=1"`
}

// CacheConfig selects the shared layout cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend" validate:"oneof=memory file redis none"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr" validate:"required_if=Backend redis"`
	TTL       Duration `toml:"ttl" validate:"gt=0"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr          string   `toml:"addr" validate:"required"`
	SessionTTL    Duration `toml:"session_ttl" validate:"gt=0"`
	Sessions      string   `toml:"sessions" validate:"oneof=memory redis"`
	FrameInterval Duration `toml:"frame_interval" validate:"gt=0"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			NodeSep:  layout.DefaultNodeSep,
			RankSep:  layout.DefaultRankSep,
			Passes:   layout.DefaultPasses,
			MemoSize: 64,
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Addr:          ":8080",
			SessionTTL:    Duration{30 * time.Minute},
			Sessions:      "memory",
			FrameInterval: Duration{33 * time.Millisecond},
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codeflow", "config.toml")
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if stderrors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	return Parse(string(data))
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		return name
	})
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		return int64(v.Interface().(Duration).Duration)
	}, Duration{})
}

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	sort.Strings(msgs)
	return errors.New(errors.ErrCodeInvalidConfig, "invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	// Namespace is "Config.layout.passes"; drop the root type.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// LayoutOptions returns the engine options.
func (c Config) LayoutOptions() layout.Options {
	return layout.Options{NodeSep: c.Layout.NodeSep, RankSep: c.Layout.RankSep, Passes: c.Layout.Passes}
}

// ParseLevel returns the configured log level.
func (c LogConfig) ParseLevel() log.Level {
	lvl, err := log.ParseLevel(c.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Encode writes c as TOML.
func (c Config) Encode() (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", err
	}
	return b.String(), nil
}
