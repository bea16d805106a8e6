package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/audioio"
)

// voskServer mimics vosk-server: a partial after the first frame and the
// final text after the second.
func voskServer(t *testing.T, final string, gotConfig chan<- voskConfig) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var cfg voskConfig
		if err := conn.ReadJSON(&cfg); err != nil {
			return
		}
		if gotConfig != nil {
			gotConfig <- cfg
		}
		frames := 0
		for {
			mt, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			frames++
			switch frames {
			case 1:
				_ = conn.WriteJSON(map[string]string{"partial": "go to"})
			case 2:
				_ = conn.WriteJSON(map[string]string{"text": ""})
			case 3:
				_ = conn.WriteJSON(map[string]string{"text": final})
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func frames(n int) []audioio.AudioChunk {
	out := make([]audioio.AudioChunk, n)
	for i := range out {
		out[i] = audioio.Silence(512, 16000)
	}
	return out
}

func TestVosk_Listen(t *testing.T) {
	gotConfig := make(chan voskConfig, 1)
	srv := voskServer(t, "go to kitchen", gotConfig)
	defer srv.Close()

	mic := audioio.NewMockMicrophone(audioio.DefaultConfig(), log.Discard(),
		audioio.WithChunks(frames(3)...), audioio.WithHold())

	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	v := NewVosk(cfg, mic, log.Discard())

	text, err := v.Listen(context.Background(), []string{"go to kitchen", "stop"})
	require.NoError(t, err)
	assert.Equal(t, "go to kitchen", text)
	assert.False(t, mic.Held(), "microphone released after Listen")

	cfgMsg := <-gotConfig
	assert.Equal(t, 16000, cfgMsg.Config.SampleRate)
	assert.Equal(t, []string{"go to kitchen", "stop"}, cfgMsg.Config.PhraseList)
}

func TestVosk_ContextCancel(t *testing.T) {
	srv := voskServer(t, "never", nil)
	defer srv.Close()

	mic := audioio.NewMockMicrophone(audioio.DefaultConfig(), log.Discard(), audioio.WithHold())
	cfg := DefaultConfig()
	cfg.Endpoint = wsURL(srv)
	v := NewVosk(cfg, mic, log.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	text, err := v.Listen(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, text)
	assert.False(t, mic.Held())
}

func TestOpen_UnreachableIsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "ws://127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond
	mic := audioio.NewMockMicrophone(audioio.DefaultConfig(), log.Discard())

	in := Open(context.Background(), cfg, mic, log.Discard())
	assert.Equal(t, "disabled", in.Name())

	text, err := in.Listen(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestStatic(t *testing.T) {
	s := NewStatic("kitchen")
	s.Push("stop")

	for _, want := range []string{"kitchen", "stop", ""} {
		got, err := s.Listen(context.Background(), []string{"stop"})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, s.Calls())
	assert.Equal(t, []string{"stop"}, s.LastPhrases())
}
