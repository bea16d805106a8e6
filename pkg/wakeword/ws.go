package wakeword

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// Event is a detection reported by the server.
type Event struct {
	Type       string  `json:"type"`
	WakeWord   string  `json:"wake_word"`
	Confidence float64 `json:"confidence"`
	Timestamp  float64 `json:"timestamp"`
	Message    string  `json:"message,omitempty"`
}

// configMessage is sent once per session before any audio.
type configMessage struct {
	Type        string   `json:"type"`
	Enabled     bool     `json:"enabled"`
	WakeWords   []string `json:"wake_words"`
	Threshold   float64  `json:"threshold"`
	ModelPath   string   `json:"model_path"`
	SampleRate  int      `json:"sample_rate"`
	FrameLength int      `json:"frame_length"`
}

// WSEngine streams microphone audio to a detection server over a
// websocket and waits for a wake_word event.
type WSEngine struct {
	cfg    Config
	mic    audioio.Microphone
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewWSEngine creates a websocket engine reading from mic.
func NewWSEngine(cfg Config, mic audioio.Microphone, logger *slog.Logger) *WSEngine {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	return &WSEngine{
		cfg:    cfg,
		mic:    mic,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		logger: log.OrDefault(logger, "wakeword.ws"),
	}
}

// Name implements Engine.
func (e *WSEngine) Name() string { return "ws" }

// Probe checks the server accepts connections.
func (e *WSEngine) Probe(ctx context.Context) error {
	conn, err := e.dial(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (e *WSEngine) dial(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.DialTimeout)
	defer cancel()
	conn, _, err := e.dialer.DialContext(ctx, e.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wakeword: dial %s: %w", e.cfg.Endpoint, err)
	}
	return conn, nil
}

// Listen implements Engine.
func (e *WSEngine) Listen(ctx context.Context, stop <-chan struct{}) (bool, error) {
	conn, err := e.dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	capture, err := e.mic.Open(ctx)
	if err != nil {
		return false, fmt.Errorf("wakeword: open microphone: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		_ = capture.Close()
		_ = conn.Close()
		wg.Wait()
	}()

	micCfg := e.mic.Config()
	if err := conn.WriteJSON(configMessage{
		Type:        "wake_word_config",
		Enabled:     true,
		WakeWords:   []string{e.cfg.Keyword},
		Threshold:   e.cfg.Sensitivity,
		ModelPath:   e.cfg.ModelPath,
		SampleRate:  micCfg.SampleRate,
		FrameLength: micCfg.FrameSamples(),
	}); err != nil {
		return false, fmt.Errorf("wakeword: send config: %w", err)
	}

	events := make(chan Event, 1)
	readErr := make(chan error, 1)
	pumpErr := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		e.readLoop(conn, events, readErr)
	}()
	go func() {
		defer wg.Done()
		pumpErr <- pump(sessionCtx, capture, conn)
	}()

	select {
	case ev := <-events:
		e.logger.Info("wake word detected",
			"wake_word", ev.WakeWord,
			"confidence", ev.Confidence,
		)
		return true, nil
	case err := <-readErr:
		return false, err
	case err := <-pumpErr:
		if sessionCtx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("wakeword: audio stream: %w", err)
	case <-stop:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (e *WSEngine) readLoop(conn *websocket.Conn, events chan<- Event, errs chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- fmt.Errorf("wakeword: read: %w", err)
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			e.logger.Debug("ignoring malformed message", "error", err)
			continue
		}
		switch ev.Type {
		case "wake_word":
			events <- ev
			return
		case "error":
			errs <- fmt.Errorf("wakeword: server error: %s", ev.Message)
			return
		}
	}
}

// pump forwards captured audio to the server as binary frames.
func pump(ctx context.Context, capture audioio.Capture, conn *websocket.Conn) error {
	for {
		chunk, err := capture.Read(ctx)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk.Bytes()); err != nil {
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			return err
		}
	}
}

var _ Engine = (*WSEngine)(nil)
