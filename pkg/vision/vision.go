// Package vision runs the obstacle sensing worker.
//
// The worker repeatedly asks a Sensor for detections, maps them to alert
// labels and publishes the alert set whenever it changes. It never blocks
// the control loop: publishing goes through an obstacle.Publisher.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// ErrUnavailable means no camera or model could be opened.
var ErrUnavailable = errors.New("vision: unavailable")

// Sensor captures one frame and returns what it saw.
type Sensor interface {
	Sense(ctx context.Context) ([]obstacle.Detection, error)
	Close() error
}

// Config holds vision settings.
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	ModelPath     string        `mapstructure:"model_path"`
	CameraIndices []int         `mapstructure:"camera_indices"`
	Confidence    float64       `mapstructure:"confidence"`
	NMS           float64       `mapstructure:"nms"`
	InputSize     int           `mapstructure:"input_size"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`

	// AnnounceCooldown spaces out spoken "<label> ahead" warnings.
	// Zero disables announcements.
	AnnounceCooldown time.Duration `mapstructure:"announce_cooldown"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		ModelPath:        "models/yolov8n.onnx",
		CameraIndices:    []int{0, 1, 2},
		Confidence:       obstacle.MinConfidence,
		NMS:              0.45,
		InputSize:        640,
		AnnounceCooldown: 5 * time.Second,
	}
}

// Option configures the worker.
type Option func(*runner)

// WithAnnouncer speaks "<alerts> ahead" when a new alert set appears,
// at most once per cooldown.
func WithAnnouncer(say func(string), cooldown time.Duration) Option {
	return func(r *runner) {
		r.say = say
		r.cooldown = cooldown
	}
}

// WithClock overrides time.Now for announcement cooldowns.
func WithClock(now func() time.Time) Option {
	return func(r *runner) { r.now = now }
}

type runner struct {
	cfg      Config
	sensor   Sensor
	pub      obstacle.Publisher
	logger   *slog.Logger
	say      func(string)
	cooldown time.Duration
	now      func() time.Time

	lastSpoken   string
	lastSpokenAt time.Time
}

// NewWorker returns the vision worker. Terminate closes the sensor, which
// unblocks a capture stuck in the driver.
func NewWorker(cfg Config, sensor Sensor, pub obstacle.Publisher, logger *slog.Logger, opts ...Option) *worker.Handle {
	r := &runner{
		cfg:    cfg,
		sensor: sensor,
		pub:    pub,
		logger: log.OrDefault(logger, "vision"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return worker.New("vision", r.run,
		worker.WithLogger(logger),
		worker.WithTerminator(func() { _ = sensor.Close() }),
	)
}

func (r *runner) run(ctx context.Context, stop <-chan struct{}) error {
	defer r.sensor.Close()

	minConf := r.cfg.Confidence
	if minConf <= 0 {
		minConf = obstacle.MinConfidence
	}

	var last obstacle.AlertSet
	r.logger.Info("vision worker started")
	for {
		select {
		case <-stop:
			r.logger.Info("vision worker stopped")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		dets, err := r.sensor.Sense(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("vision: sense: %w", err)
		}

		alerts := obstacle.Alerts(dets, minConf)
		if !alerts.Equal(last) {
			r.pub.Publish(alerts)
			r.logger.Info("alerts changed", "alerts", alerts.String())
			last = alerts
		}
		r.announce(alerts)

		if r.cfg.FrameInterval > 0 {
			timer := time.NewTimer(r.cfg.FrameInterval)
			select {
			case <-timer.C:
			case <-stop:
				timer.Stop()
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}
}

func (r *runner) announce(alerts obstacle.AlertSet) {
	if r.say == nil || r.cooldown <= 0 || !alerts.Blocking() {
		return
	}
	current := alerts.String()
	now := r.now()
	if current == r.lastSpoken || now.Sub(r.lastSpokenAt) <= r.cooldown {
		return
	}
	r.say(current + " ahead")
	r.lastSpoken = current
	r.lastSpokenAt = now
}
