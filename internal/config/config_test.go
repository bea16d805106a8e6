package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 100*time.Millisecond, cfg.Loop.Tick)
	assert.Equal(t, 2*time.Second, cfg.Loop.ClearThreshold)
	assert.Equal(t, []int{0, 1, 2}, cfg.Vision.CameraIndices)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nova.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
loop:
  clear_threshold: 3s
motion:
  driver: serial
  port: /dev/ttyACM0
rooms:
  path: data/rooms.db
`), 0o644))

	t.Setenv("NOVA_LOOP_TICK", "50ms")
	t.Setenv("NOVA_DASHBOARD_PORT", "9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rooms", "", "")
	flags.Bool("no-vision", false, "")
	require.NoError(t, flags.Parse([]string{"--rooms", "override.json", "--no-vision"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Loop.ClearThreshold)
	assert.Equal(t, 50*time.Millisecond, cfg.Loop.Tick)
	assert.Equal(t, "serial", cfg.Motion.Driver)
	assert.Equal(t, "/dev/ttyACM0", cfg.Motion.Serial().Path)
	assert.Equal(t, "9000", cfg.Dashboard.Port)
	assert.Equal(t, "override.json", cfg.Rooms.Path, "flags beat the file")
	assert.False(t, cfg.Vision.Enabled)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero tick", func(c *Config) { c.Loop.Tick = 0 }, "loop.tick"},
		{"speed too high", func(c *Config) { c.Motion.DefaultSpeed = 150 }, "motion.default_speed"},
		{"unknown driver", func(c *Config) { c.Motion.Driver = "gpio" }, "motion.driver"},
		{"serial without port", func(c *Config) { c.Motion.Driver = "serial"; c.Motion.Port = "" }, "motion.port"},
		{"no model", func(c *Config) { c.WakeWord.ModelPath = "" }, "wakeword.model_path"},
		{"bad sensitivity", func(c *Config) { c.WakeWord.Sensitivity = 2 }, "wakeword.sensitivity"},
		{"no rooms path", func(c *Config) { c.Rooms.Path = "" }, "rooms.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			err := cfg.Validate()

			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "want *ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	assert.NoError(t, Default().Validate())
}
