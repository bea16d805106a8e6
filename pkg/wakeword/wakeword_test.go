package wakeword

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
	"github.com/teslashibe/nova-guide/pkg/worker"
)

func TestSignal(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.Clear())

	s.Set()
	s.Set() // absorbed
	assert.True(t, s.Clear())
	assert.False(t, s.Clear(), "signal consumed exactly once")

	s.Set()
	select {
	case <-s.C():
	default:
		t.Fatal("expected pending signal")
	}
}

func TestListener_DetectionRaisesSignal(t *testing.T) {
	engine := NewMock()
	sig := NewSignal()

	h := NewListener(engine, sig, log.Discard())
	require.NoError(t, h.Start(context.Background()))

	engine.Fire()
	select {
	case <-sig.C():
	case <-time.After(time.Second):
		t.Fatal("signal not raised")
	}
	require.True(t, h.Join(time.Second), "listener exits after detection")
	assert.NoError(t, h.Err())
}

func TestListener_StopDoesNotRaiseSignal(t *testing.T) {
	engine := NewMock()
	sig := NewSignal()

	h := NewListener(engine, sig, log.Discard())
	require.NoError(t, h.Start(context.Background()))

	assert.Equal(t, worker.Joined, worker.StopAndJoin(h, time.Second, 100*time.Millisecond))
	assert.False(t, sig.Clear())
}

func TestListener_EngineErrorEndsWorker(t *testing.T) {
	engine := NewMock()
	engine.Err = errors.New("device unplugged")

	h := NewListener(engine, NewSignal(), log.Discard())
	require.NoError(t, h.Start(context.Background()))
	require.True(t, h.Join(time.Second))
	assert.EqualError(t, h.Err(), "device unplugged")
	assert.False(t, h.Alive())
}

func TestDisabled(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	detected, err := Disabled{}.Listen(context.Background(), stop)
	assert.False(t, detected)
	assert.NoError(t, err)
}

func TestCheckModel(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "nova.ppn")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o644))

	assert.NoError(t, CheckModel(model))
	assert.ErrorIs(t, CheckModel(filepath.Join(dir, "missing.ppn")), ErrModelMissing)
	assert.ErrorIs(t, CheckModel(dir), ErrModelMissing)
	assert.ErrorIs(t, CheckModel(""), ErrModelMissing)
}

func TestOpen(t *testing.T) {
	mic := audioio.NewMockMicrophone(audioio.DefaultConfig(), log.Discard())

	t.Run("missing model is fatal", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ModelPath = filepath.Join(t.TempDir(), "nope.ppn")
		engine, err := Open(context.Background(), cfg, mic, log.Discard())
		assert.ErrorIs(t, err, ErrModelMissing)
		assert.Nil(t, engine)
	})

	t.Run("unreachable server degrades", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ModelPath = writeModel(t)
		cfg.Endpoint = "ws://127.0.0.1:1/ws/wakeword"
		cfg.DialTimeout = 200 * time.Millisecond
		engine, err := Open(context.Background(), cfg, mic, log.Discard())
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.Equal(t, "disabled", engine.Name())
	})

	t.Run("disabled by config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ModelPath = writeModel(t)
		cfg.Enabled = false
		engine, err := Open(context.Background(), cfg, mic, log.Discard())
		require.NoError(t, err)
		assert.Equal(t, "disabled", engine.Name())
	})
}

func writeModel(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "nova.ppn")
	require.NoError(t, os.WriteFile(p, []byte("model"), 0o644))
	return p
}

// wakeServer answers with a detection after receiving n audio frames.
func wakeServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var cfg configMessage
		if err := conn.ReadJSON(&cfg); err != nil || cfg.Type != "wake_word_config" {
			return
		}
		frames := 0
		for {
			mt, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				frames++
			}
			if n > 0 && frames >= n {
				_ = conn.WriteJSON(Event{Type: "wake_word", WakeWord: cfg.WakeWords[0], Confidence: 0.97})
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWSEngine_Detects(t *testing.T) {
	srv := wakeServer(t, 2)
	defer srv.Close()

	micCfg := audioio.DefaultConfig()
	mic := audioio.NewMockMicrophone(micCfg, log.Discard(),
		audioio.WithChunks(audioio.Silence(512, 16000), audioio.Silence(512, 16000)),
		audioio.WithHold(),
	)

	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	engine := NewWSEngine(cfg, mic, log.Discard())

	detected, err := engine.Listen(context.Background(), make(chan struct{}))
	require.NoError(t, err)
	assert.True(t, detected)
	assert.False(t, mic.Held(), "microphone released when Listen returns")
}

func TestWSEngine_StopReleasesMicrophone(t *testing.T) {
	srv := wakeServer(t, 0)
	defer srv.Close()

	mic := audioio.NewMockMicrophone(audioio.DefaultConfig(), log.Discard(), audioio.WithHold())
	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	engine := NewWSEngine(cfg, mic, log.Discard())

	stop := make(chan struct{})
	result := make(chan bool, 1)
	go func() {
		detected, _ := engine.Listen(context.Background(), stop)
		result <- detected
	}()

	require.Eventually(t, mic.Held, time.Second, 5*time.Millisecond)
	close(stop)

	select {
	case detected := <-result:
		assert.False(t, detected)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after stop")
	}
	assert.False(t, mic.Held())
}
