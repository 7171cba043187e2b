package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

// isolate keeps config files from the working directory or $HOME out of a
// test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Dispatch{Tick: 16 * time.Millisecond, Speed: 30}
	if diff := cmp.Diff(want, cfg.Dispatch); diff != "" {
		t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Cursor{Near: 0.1, Far: 50, StartDepth: 1}, cfg.Cursor); diff != "" {
		t.Errorf("cursor mismatch (-want +got):\n%s", diff)
	}
	if cfg.Addr != ":8080" || !cfg.SDL.Enabled || !cfg.Ingest.Enabled || cfg.Statsview.Addr != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.File != "" {
		t.Errorf("config file %q read without one present", cfg.File)
	}
}

func TestPrecedence(t *testing.T) {
	isolate(t)

	file := filepath.Join(t.TempDir(), "padcursor.yaml")
	content := []byte(`
addr: ":9000"
dispatch:
  speed: 45
  tick: 20ms
cursor:
  far: 20
log:
  level: debug
`)
	if err := os.WriteFile(file, content, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PADCURSOR_DISPATCH_SPEED", "60")
	t.Setenv("PADCURSOR_CURSOR_START_DEPTH", "2")

	cfg, err := Load([]string{"--config", file, "--dispatch.tick", "8ms"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file only", cfg.Addr, ":9000"},
		{"env over file", cfg.Dispatch.Speed, float32(60)},
		{"flag over file", cfg.Dispatch.Tick, 8 * time.Millisecond},
		{"file over default", cfg.Cursor.Far, float32(20)},
		{"env over default", cfg.Cursor.StartDepth, float32(2)},
		{"nested file key", cfg.Log.Level, "debug"},
		{"config file used", cfg.File, file},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.got); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}

func TestValidate(t *testing.T) {
	isolate(t)

	base, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero tick", func(c *Config) { c.Dispatch.Tick = 0 }},
		{"negative speed", func(c *Config) { c.Dispatch.Speed = -1 }},
		{"near beyond far", func(c *Config) { c.Cursor.Near = 60 }},
		{"zero near", func(c *Config) { c.Cursor.Near = 0 }},
		{"start depth outside shell", func(c *Config) { c.Cursor.StartDepth = 0.01 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero resync", func(c *Config) { c.Viewer.DeltaResync = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}

	if err := base.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Config{Addr: ":1", Log: Log{Format: "json"}}
	err := c.Validate()
	if err == nil {
		t.Fatal("zero config accepted")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("error %v does not match ErrInvalid", err)
	}
	// tick, speed, near/far, full sync, delta resync
	if n := len(multierr.Errors(err)); n != 5 {
		t.Errorf("got %d problems, want 5: %v", n, err)
	}
}
