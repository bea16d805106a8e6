package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// voskConfig is the first message of a session.
type voskConfig struct {
	Config voskSettings `json:"config"`
}

type voskSettings struct {
	SampleRate int      `json:"sample_rate"`
	PhraseList []string `json:"phrase_list,omitempty"`
}

// voskResult is a server reply. Partial results carry Partial, final
// results carry Text.
type voskResult struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

// Vosk streams microphone audio to a Vosk server.
type Vosk struct {
	cfg    Config
	mic    audioio.Microphone
	dialer *websocket.Dialer
	logger *slog.Logger
}

// NewVosk creates a Vosk server client reading from mic.
func NewVosk(cfg Config, mic audioio.Microphone, logger *slog.Logger) *Vosk {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = mic.Config().SampleRate
	}
	return &Vosk{
		cfg:    cfg,
		mic:    mic,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		logger: log.OrDefault(logger, "stt.vosk"),
	}
}

// Name implements Interpreter.
func (v *Vosk) Name() string { return "vosk" }

// Probe checks the server accepts connections.
func (v *Vosk) Probe(ctx context.Context) error {
	conn, err := v.dial(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (v *Vosk) dial(ctx context.Context) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.DialTimeout)
	defer cancel()
	conn, _, err := v.dialer.DialContext(ctx, v.cfg.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("stt: dial %s: %w", v.cfg.Endpoint, err)
	}
	return conn, nil
}

// Listen implements Interpreter.
func (v *Vosk) Listen(ctx context.Context, phrases []string) (string, error) {
	conn, err := v.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	capture, err := v.mic.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("stt: open microphone: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		_ = capture.Close()
		_ = conn.Close()
		wg.Wait()
	}()

	if err := conn.WriteJSON(voskConfig{Config: voskSettings{
		SampleRate: v.cfg.SampleRate,
		PhraseList: phrases,
	}}); err != nil {
		return "", fmt.Errorf("stt: send config: %w", err)
	}

	v.logger.Info("listening for command", "phrases", len(phrases))
	started := time.Now()

	results := make(chan string, 1)
	readErr := make(chan error, 1)
	pumpErr := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		v.readLoop(conn, results, readErr)
	}()
	go func() {
		defer wg.Done()
		pumpErr <- v.pump(sessionCtx, capture, conn)
	}()

	select {
	case text := <-results:
		v.logger.Info("command heard", "text", text, "elapsed", time.Since(started))
		return text, nil
	case err := <-readErr:
		return "", err
	case err := <-pumpErr:
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("stt: audio stream: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (v *Vosk) readLoop(conn *websocket.Conn, results chan<- string, errs chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errs <- fmt.Errorf("stt: read: %w", err)
			return
		}
		var res voskResult
		if err := json.Unmarshal(data, &res); err != nil {
			v.logger.Debug("ignoring malformed result", "error", err)
			continue
		}
		if res.Partial != "" {
			v.logger.Debug("partial result", "partial", res.Partial)
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			results <- text
			return
		}
	}
}

func (v *Vosk) pump(ctx context.Context, capture audioio.Capture, conn *websocket.Conn) error {
	for {
		chunk, err := capture.Read(ctx)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk.Bytes()); err != nil {
			return err
		}
	}
}

var _ Interpreter = (*Vosk)(nil)
