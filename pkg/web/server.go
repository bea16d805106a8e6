// Package web serves the optional status dashboard.
//
// It exposes the control loop's status snapshot and the room map over
// HTTP and pushes status changes to websocket clients through a hub.
// The control loop only ever calls PublishStatus, which never blocks.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/hub"
	"github.com/teslashibe/nova-guide/pkg/orchestrator"
	"github.com/teslashibe/nova-guide/pkg/rooms"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

// StatusSource supplies the current status.
type StatusSource interface {
	Snapshot() orchestrator.Status
}

// RoomStore is the room map the dashboard reads and extends.
type RoomStore interface {
	All() map[string]rooms.Point
	Save(ctx context.Context, name string, p rooms.Point) error
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger

	status    StatusSource
	rooms     RoomStore
	statusHub *hub.Hub
	hubWorker *worker.Handle
}

// NewServer builds the server. status may be set later with SetStatus,
// since the orchestrator needs the server as its sink first.
func NewServer(addr string, roomStore RoomStore, logger *slog.Logger) *Server {
	logger = log.OrDefault(logger, "web")
	s := &Server{
		addr:      addr,
		logger:    logger,
		rooms:     roomStore,
		statusHub: hub.New("status", logger),
	}
	s.hubWorker = worker.New("web.hub", s.statusHub.Run, worker.WithLogger(logger))

	app := fiber.New(fiber.Config{
		AppName:               "nova-guide",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/rooms", s.handleListRooms)
	api.Post("/rooms", s.handleSaveRoom)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// SetStatus sets the status source. Call it before Start.
func (s *Server) SetStatus(src StatusSource) { s.status = src }

// PublishStatus implements orchestrator.StatusSink.
func (s *Server) PublishStatus(st orchestrator.Status) {
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
}

// Start launches the hub and serves in the background. Listen errors
// are logged; the dashboard is never fatal.
func (s *Server) Start(ctx context.Context) error {
	if err := s.hubWorker.Start(ctx); err != nil {
		return err
	}
	go func() {
		s.logger.Info("dashboard listening", "addr", s.addr)
		if err := s.app.Listen(s.addr); err != nil {
			s.logger.Warn("dashboard stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops serving and disconnects websocket clients.
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.app.ShutdownWithTimeout(timeout)
	worker.StopAndJoin(s.hubWorker, timeout, timeout)
	return err
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

var _ orchestrator.StatusSink = (*Server)(nil)

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
