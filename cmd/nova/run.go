package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/nova-guide/internal/config"
	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
	"github.com/teslashibe/nova-guide/pkg/motion"
	"github.com/teslashibe/nova-guide/pkg/notify"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/orchestrator"
	"github.com/teslashibe/nova-guide/pkg/rooms"
	"github.com/teslashibe/nova-guide/pkg/stt"
	"github.com/teslashibe/nova-guide/pkg/vision"
	"github.com/teslashibe/nova-guide/pkg/vision/yolo"
	"github.com/teslashibe/nova-guide/pkg/wakeword"
	"github.com/teslashibe/nova-guide/pkg/web"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the robot and run until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.L()
	logger.Info("starting nova", "version", version)

	// Required before anything touches hardware.
	if err := wakeword.CheckModel(cfg.WakeWord.ModelPath); err != nil {
		return fmt.Errorf("wake word model: %w", err)
	}

	mic, err := audioio.NewMicrophone(cfg.Audio, logger)
	if err != nil {
		logger.Warn("Disabled: voice commands (no microphone)", "error", err)
		cfg.WakeWord.Enabled = false
		cfg.STT.Enabled = false
	}

	engine, err := wakeword.Open(ctx, cfg.WakeWord, mic, logger)
	if err != nil {
		if !errors.Is(err, wakeword.ErrEngineUnavailable) {
			return err
		}
		logger.Warn("Disabled: wake word", "error", err)
	}
	interpreter := stt.Open(ctx, cfg.STT, mic, logger)

	motors, err := openMotion(cfg.Motion, logger)
	if err != nil {
		return err
	}

	store, err := rooms.Open(cfg.Rooms.Path)
	if err != nil {
		logger.Warn("room store unavailable, learned rooms will not persist", "path", cfg.Rooms.Path, "error", err)
		store = rooms.NewMemoryStore()
	}
	registry := rooms.NewRegistry(ctx, store, logger)
	defer registry.Close()

	notifier := notify.New(notify.NewSpeaker(cfg.Speech, logger), logger)

	mailbox := obstacle.NewMailbox()
	var monitor obstacle.Monitor = mailbox
	visionWorker := openVision(cfg.Vision, mailbox, notifier.Say, logger)
	if visionWorker == nil {
		monitor = obstacle.Never{}
	}

	deps := orchestrator.Deps{
		Motion:      motors,
		Obstacles:   monitor,
		WakeWord:    engine,
		Interpreter: interpreter,
		Notifier:    notifier,
		Vision:      visionWorker,
		Rooms:       registry,
		Logger:      logger,
	}

	var dash *web.Server
	if cfg.Dashboard.Port != "" {
		dash = web.NewServer(":"+cfg.Dashboard.Port, registry, logger)
		deps.Status = dash
	}

	o, err := orchestrator.New(orchestratorConfig(cfg), deps)
	if err != nil {
		return err
	}

	if dash != nil {
		dash.SetStatus(o)
		if err := dash.Start(ctx); err != nil {
			logger.Warn("Disabled: dashboard", "error", err)
		} else {
			defer dash.Shutdown(cfg.Shutdown.AudioTimeout)
		}
	}

	return o.Run(ctx)
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		Tick:                 cfg.Loop.Tick,
		ClearThreshold:       cfg.Loop.ClearThreshold,
		TurnDuration:         cfg.Loop.TurnDuration,
		ListenerRestartDelay: cfg.Loop.ListenerRestartDelay,
		MaxListenerFailures:  cfg.Loop.MaxListenerFailures,
		DefaultSpeed:         cfg.Motion.DefaultSpeed,
		TurnSpeed:            cfg.Motion.TurnSpeed,
		ListenerTimeout:      cfg.Shutdown.ListenerTimeout,
		VisionTimeout:        cfg.Shutdown.VisionTimeout,
		AudioTimeout:         cfg.Shutdown.AudioTimeout,
		KillGrace:            cfg.Shutdown.KillGrace,
	}
}

func openMotion(mc config.MotionConfig, logger *slog.Logger) (*motion.Driver, error) {
	var backend motion.Backend
	switch mc.Driver {
	case "serial":
		b, err := motion.OpenSerial(mc.Serial())
		if err != nil {
			return nil, fmt.Errorf("motor controller: %w", err)
		}
		backend = b
	default:
		logger.Info("using simulated motors")
		backend = motion.NewSimBackend(logger)
	}
	return motion.NewDriver(backend, logger)
}

// openVision returns the vision worker, or nil when vision is disabled or
// the camera/model cannot be opened.
func openVision(vc vision.Config, pub obstacle.Publisher, say func(string), logger *slog.Logger) *worker.Handle {
	if !vc.Enabled {
		logger.Info("Disabled: obstacle detection (by configuration)")
		return nil
	}
	sensor, err := yolo.Open(vc, logger)
	if err != nil {
		logger.Warn("Disabled: obstacle detection", "error", err)
		return nil
	}
	return vision.NewWorker(vc, sensor, pub, logger, vision.WithAnnouncer(say, vc.AnnounceCooldown))
}
