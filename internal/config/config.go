// Package config loads nova-guide settings.
//
// Sources, lowest to highest precedence: built-in defaults, a YAML file
// (nova.yaml in the working directory or ./config, or an explicit path),
// NOVA_* environment variables (NOVA_LOOP_TICK for loop.tick) and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teslashibe/nova-guide/pkg/audioio"
	"github.com/teslashibe/nova-guide/pkg/motion"
	"github.com/teslashibe/nova-guide/pkg/notify"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/stt"
	"github.com/teslashibe/nova-guide/pkg/vision"
	"github.com/teslashibe/nova-guide/pkg/wakeword"
)

// EnvPrefix is prepended to environment variable names.
const EnvPrefix = "NOVA"

// Config is the complete runtime configuration.
type Config struct {
	LogLevel  string              `mapstructure:"log_level"`
	Loop      LoopConfig          `mapstructure:"loop"`
	Motion    MotionConfig        `mapstructure:"motion"`
	Vision    vision.Config       `mapstructure:"vision"`
	WakeWord  wakeword.Config     `mapstructure:"wakeword"`
	STT       stt.Config          `mapstructure:"stt"`
	Audio     audioio.Config      `mapstructure:"audio"`
	Speech    notify.SpeechConfig `mapstructure:"speech"`
	Rooms     RoomsConfig         `mapstructure:"rooms"`
	Dashboard DashboardConfig     `mapstructure:"dashboard"`
	Shutdown  ShutdownConfig      `mapstructure:"shutdown"`
}

// LoopConfig tunes the control loop.
type LoopConfig struct {
	// Tick is the bounded wait for a wake event per iteration.
	Tick time.Duration `mapstructure:"tick"`
	// ClearThreshold is how long the path must stay clear before resuming.
	ClearThreshold time.Duration `mapstructure:"clear_threshold"`
	// TurnDuration is how long a one-shot turn drives.
	TurnDuration time.Duration `mapstructure:"turn_duration"`
	// ListenerRestartDelay spaces out restarts of a failed listener.
	ListenerRestartDelay time.Duration `mapstructure:"listener_restart_delay"`
	// MaxListenerFailures disables wake-word after this many failures in a row.
	MaxListenerFailures int `mapstructure:"max_listener_failures"`
}

// MotionConfig selects and tunes the motor driver.
type MotionConfig struct {
	// Driver is "serial" or "sim".
	Driver       string `mapstructure:"driver"`
	Port         string `mapstructure:"port"`
	BaudRate     int    `mapstructure:"baud_rate"`
	DefaultSpeed int    `mapstructure:"default_speed"`
	TurnSpeed    int    `mapstructure:"turn_speed"`
}

// Serial returns the serial link options.
func (m MotionConfig) Serial() motion.SerialOptions {
	return motion.SerialOptions{Path: m.Port, BaudRate: m.BaudRate}
}

// RoomsConfig locates room persistence.
type RoomsConfig struct {
	// Path is a JSON file, or a SQLite database when it ends in .db/.sqlite.
	Path string `mapstructure:"path"`
}

// DashboardConfig controls the status web server.
type DashboardConfig struct {
	// Port to listen on. Empty disables the dashboard.
	Port string `mapstructure:"port"`
}

// ShutdownConfig bounds each shutdown step.
type ShutdownConfig struct {
	ListenerTimeout time.Duration `mapstructure:"listener_timeout"`
	VisionTimeout   time.Duration `mapstructure:"vision_timeout"`
	AudioTimeout    time.Duration `mapstructure:"audio_timeout"`
	KillGrace       time.Duration `mapstructure:"kill_grace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Loop: LoopConfig{
			Tick:                 100 * time.Millisecond,
			ClearThreshold:       obstacle.DefaultClearThreshold,
			TurnDuration:         time.Second,
			ListenerRestartDelay: time.Second,
			MaxListenerFailures:  5,
		},
		Motion: MotionConfig{
			Driver:       "sim",
			Port:         "/dev/ttyUSB0",
			BaudRate:     115200,
			DefaultSpeed: motion.DefaultSpeed,
			TurnSpeed:    motion.DefaultSpeed,
		},
		Vision:   vision.DefaultConfig(),
		WakeWord: wakeword.DefaultConfig(),
		STT:      stt.DefaultConfig(),
		Audio:    audioio.DefaultConfig(),
		Speech:   notify.DefaultSpeechConfig(),
		Rooms:    RoomsConfig{Path: "config/commands.json"},
		Shutdown: ShutdownConfig{
			ListenerTimeout: 2 * time.Second,
			VisionTimeout:   3 * time.Second,
			AudioTimeout:    2 * time.Second,
			KillGrace:       500 * time.Millisecond,
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"motion-driver":  "motion.driver",
	"serial-port":    "motion.port",
	"rooms":          "rooms.path",
	"dashboard-port": "dashboard.port",
	"no-vision":      "vision.disabled",
}

// Load reads configuration. configPath may be empty to search the default
// locations; a missing default file is not an error. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nova")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v.GetBool("vision.disabled") {
		cfg.Vision.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("loop.tick", d.Loop.Tick)
	v.SetDefault("loop.clear_threshold", d.Loop.ClearThreshold)
	v.SetDefault("loop.turn_duration", d.Loop.TurnDuration)
	v.SetDefault("loop.listener_restart_delay", d.Loop.ListenerRestartDelay)
	v.SetDefault("loop.max_listener_failures", d.Loop.MaxListenerFailures)

	v.SetDefault("motion.driver", d.Motion.Driver)
	v.SetDefault("motion.port", d.Motion.Port)
	v.SetDefault("motion.baud_rate", d.Motion.BaudRate)
	v.SetDefault("motion.default_speed", d.Motion.DefaultSpeed)
	v.SetDefault("motion.turn_speed", d.Motion.TurnSpeed)

	v.SetDefault("vision.enabled", d.Vision.Enabled)
	v.SetDefault("vision.disabled", false)
	v.SetDefault("vision.model_path", d.Vision.ModelPath)
	v.SetDefault("vision.camera_indices", d.Vision.CameraIndices)
	v.SetDefault("vision.confidence", d.Vision.Confidence)
	v.SetDefault("vision.nms", d.Vision.NMS)
	v.SetDefault("vision.input_size", d.Vision.InputSize)
	v.SetDefault("vision.frame_interval", d.Vision.FrameInterval)
	v.SetDefault("vision.announce_cooldown", d.Vision.AnnounceCooldown)

	v.SetDefault("wakeword.enabled", d.WakeWord.Enabled)
	v.SetDefault("wakeword.endpoint", d.WakeWord.Endpoint)
	v.SetDefault("wakeword.model_path", d.WakeWord.ModelPath)
	v.SetDefault("wakeword.keyword", d.WakeWord.Keyword)
	v.SetDefault("wakeword.sensitivity", d.WakeWord.Sensitivity)
	v.SetDefault("wakeword.dial_timeout", d.WakeWord.DialTimeout)

	v.SetDefault("stt.enabled", d.STT.Enabled)
	v.SetDefault("stt.endpoint", d.STT.Endpoint)
	v.SetDefault("stt.sample_rate", d.STT.SampleRate)
	v.SetDefault("stt.dial_timeout", d.STT.DialTimeout)

	v.SetDefault("audio.backend", string(d.Audio.Backend))
	v.SetDefault("audio.device", d.Audio.Device)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.frame", d.Audio.FrameDuration)

	v.SetDefault("speech.command", d.Speech.Command)
	v.SetDefault("speech.args", d.Speech.Args)

	v.SetDefault("rooms.path", d.Rooms.Path)
	v.SetDefault("dashboard.port", d.Dashboard.Port)

	v.SetDefault("shutdown.listener_timeout", d.Shutdown.ListenerTimeout)
	v.SetDefault("shutdown.vision_timeout", d.Shutdown.VisionTimeout)
	v.SetDefault("shutdown.audio_timeout", d.Shutdown.AudioTimeout)
	v.SetDefault("shutdown.kill_grace", d.Shutdown.KillGrace)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	positive := []struct {
		field string
		d     time.Duration
	}{
		{"loop.tick", c.Loop.Tick},
		{"loop.clear_threshold", c.Loop.ClearThreshold},
		{"loop.turn_duration", c.Loop.TurnDuration},
		{"shutdown.listener_timeout", c.Shutdown.ListenerTimeout},
		{"shutdown.vision_timeout", c.Shutdown.VisionTimeout},
		{"shutdown.audio_timeout", c.Shutdown.AudioTimeout},
		{"shutdown.kill_grace", c.Shutdown.KillGrace},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return &ConfigError{Field: p.field, Message: fmt.Sprintf("%s must be positive, got %v", p.field, p.d)}
		}
	}

	for field, speed := range map[string]int{
		"motion.default_speed": c.Motion.DefaultSpeed,
		"motion.turn_speed":    c.Motion.TurnSpeed,
	} {
		if speed < motion.MinSpeed || speed > motion.MaxSpeed {
			return &ConfigError{Field: field, Message: fmt.Sprintf("%s must be within [%d, %d], got %d", field, motion.MinSpeed, motion.MaxSpeed, speed)}
		}
	}

	switch c.Motion.Driver {
	case "sim":
	case "serial":
		if strings.TrimSpace(c.Motion.Port) == "" {
			return &ConfigError{Field: "motion.port", Message: "motion.port is required for the serial driver"}
		}
	default:
		return &ConfigError{Field: "motion.driver", Message: fmt.Sprintf("unknown motion driver %q (must be sim or serial)", c.Motion.Driver)}
	}

	if c.WakeWord.ModelPath == "" {
		return &ConfigError{Field: "wakeword.model_path", Message: "wakeword.model_path is required"}
	}
	if c.WakeWord.Sensitivity < 0 || c.WakeWord.Sensitivity > 1 {
		return &ConfigError{Field: "wakeword.sensitivity", Message: "wakeword.sensitivity must be within [0, 1]"}
	}
	if err := c.Audio.Validate(); err != nil {
		return &ConfigError{Field: "audio", Message: err.Error()}
	}
	if c.Rooms.Path == "" {
		return &ConfigError{Field: "rooms.path", Message: "rooms.path is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
