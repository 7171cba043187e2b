// Package config loads padcursor settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const envPrefix = "PADCURSOR"

type Config struct {
	Addr      string
	Dispatch  Dispatch
	Cursor    Cursor
	SDL       SDL
	Ingest    Ingest
	Viewer    Viewer
	Tray      Tray
	Statsview Statsview
	Log       Log

	// File is the config file that was read, if any.
	File string
}

type Dispatch struct {
	Tick  time.Duration
	Speed float32
}

type Cursor struct {
	Near       float32
	Far        float32
	StartDepth float32
}

type SDL struct {
	Enabled bool
}

type Ingest struct {
	Enabled  bool
	Compress bool
}

type Viewer struct {
	FullSync    time.Duration
	DeltaResync int
}

type Tray struct {
	Enabled bool
}

type Statsview struct {
	// Addr is empty when the stats server is disabled.
	Addr string
}

type Log struct {
	Level       string
	Format      string
	Development bool
}

// NewFlagSet returns the command line flags. Every flag is named after the
// config key it overrides.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringP("config", "c", "", "config file (default padcursor.{yaml,toml,json} in . or $HOME/.config/padcursor)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Duration("dispatch.tick", 16*time.Millisecond, "dispatch tick interval")
	fs.Float32("dispatch.speed", 30, "cursor speed; sensitivity is speed/100 degrees per tick")
	fs.Float32("cursor.near", 0.1, "nearest cursor distance from the head")
	fs.Float32("cursor.far", 50, "farthest cursor distance from the head")
	fs.Float32("cursor.start-depth", 1, "initial cursor distance")
	fs.Bool("sdl.enabled", true, "read local joysticks through SDL3")
	fs.Bool("ingest.enabled", true, "accept remote input on /input")
	fs.Bool("ingest.compress", true, "permessage-deflate on /input")
	fs.Duration("viewer.full-sync", 5*time.Second, "interval of full state syncs to viewers")
	fs.Int("viewer.delta-resync", 100, "deltas per controller before a full sync")
	fs.Bool("tray.enabled", runtime.GOOS == "windows", "show a system tray icon")
	fs.String("statsview.addr", "", "runtime stats server address, e.g. localhost:12600")
	fs.String("log.level", "info", "log level: debug, info, warn, error")
	fs.String("log.format", "console", "log format: console or json")
	fs.Bool("log.development", false, "development logging (stack traces on warn)")
	return fs
}

// Load parses args and resolves every key. Flags take precedence over
// PADCURSOR_* environment variables, which take precedence over the
// config file.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("padcursor")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags resolves the configuration from an already parsed flag set.
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	file, _ := fs.GetString("config")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("padcursor")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/padcursor")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Addr: v.GetString("addr"),
		Dispatch: Dispatch{
			Tick:  v.GetDuration("dispatch.tick"),
			Speed: float32(v.GetFloat64("dispatch.speed")),
		},
		Cursor: Cursor{
			Near:       float32(v.GetFloat64("cursor.near")),
			Far:        float32(v.GetFloat64("cursor.far")),
			StartDepth: float32(v.GetFloat64("cursor.start-depth")),
		},
		SDL: SDL{Enabled: v.GetBool("sdl.enabled")},
		Ingest: Ingest{
			Enabled:  v.GetBool("ingest.enabled"),
			Compress: v.GetBool("ingest.compress"),
		},
		Viewer: Viewer{
			FullSync:    v.GetDuration("viewer.full-sync"),
			DeltaResync: v.GetInt("viewer.delta-resync"),
		},
		Tray:      Tray{Enabled: v.GetBool("tray.enabled")},
		Statsview: Statsview{Addr: v.GetString("statsview.addr")},
		Log: Log{
			Level:       v.GetString("log.level"),
			Format:      v.GetString("log.format"),
			Development: v.GetBool("log.development"),
		},
		File: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting. The returned error matches
// ErrInvalid.
func (c *Config) Validate() error {
	var err error
	invalid := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Addr == "" {
		invalid("addr must not be empty")
	}
	if c.Dispatch.Tick <= 0 {
		invalid("dispatch.tick must be positive, got %s", c.Dispatch.Tick)
	}
	if c.Dispatch.Speed <= 0 {
		invalid("dispatch.speed must be positive, got %g", c.Dispatch.Speed)
	}
	if c.Cursor.Near <= 0 || c.Cursor.Near >= c.Cursor.Far {
		invalid("cursor.near must satisfy 0 < near < far, got near=%g far=%g", c.Cursor.Near, c.Cursor.Far)
	}
	if c.Cursor.StartDepth < c.Cursor.Near || c.Cursor.StartDepth > c.Cursor.Far {
		invalid("cursor.start-depth %g outside [%g, %g]", c.Cursor.StartDepth, c.Cursor.Near, c.Cursor.Far)
	}
	if c.Viewer.FullSync <= 0 {
		invalid("viewer.full-sync must be positive, got %s", c.Viewer.FullSync)
	}
	if c.Viewer.DeltaResync <= 0 {
		invalid("viewer.delta-resync must be positive, got %d", c.Viewer.DeltaResync)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		invalid("log.format must be console or json, got %q", c.Log.Format)
	}
	return err
}
