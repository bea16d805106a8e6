package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/teslashibe/nova-guide/internal/log"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.FrameSamples(); got != 512 {
		t.Errorf("FrameSamples() = %d, want 512", got)
	}
	if got := cfg.FrameBytes(); got != 1024 {
		t.Errorf("FrameBytes() = %d, want 1024", got)
	}

	bad := cfg
	bad.Backend = "portaudio"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestAudioChunk_RoundTrip(t *testing.T) {
	in := AudioChunk{Samples: []int16{0, 1, -1, 32767, -32768}, SampleRate: 16000}
	var out AudioChunk
	out.FromBytes(in.Bytes(), 16000)

	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %d, want %d", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestMicrophone_Exclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	mic := NewMockMicrophone(cfg, log.Discard(), WithHold())

	ctx := context.Background()
	first, err := mic.Open(ctx)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := mic.Open(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Open = %v, want ErrBusy", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Closing twice must not release a later holder.
	second, err := mic.Open(ctx)
	if err != nil {
		t.Fatalf("Open after Close failed: %v", err)
	}
	_ = first.Close()
	if !mic.Held() {
		t.Error("double Close released the microphone from the new holder")
	}
	_ = second.Close()

	if got := mic.Opens(); got != 2 {
		t.Errorf("Opens() = %d, want 2", got)
	}
}

func TestMockCapture_Script(t *testing.T) {
	cfg := DefaultConfig()
	mic := NewMockMicrophone(cfg, log.Discard(), WithChunks(Silence(4, 16000), Silence(4, 16000)))

	capture, err := mic.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer capture.Close()

	for i := 0; i < 2; i++ {
		if _, err := capture.Read(context.Background()); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
	}
	if _, err := capture.Read(context.Background()); err != io.EOF {
		t.Errorf("Read after script = %v, want io.EOF", err)
	}
}

func TestMockCapture_HoldUnblocksOnClose(t *testing.T) {
	mic := NewMockMicrophone(DefaultConfig(), log.Discard(), WithHold())
	capture, err := mic.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := capture.Read(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	_ = capture.Close()

	select {
	case err := <-errCh:
		if err != io.EOF {
			t.Errorf("Read = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not return after Close")
	}
}

func TestArecordArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = ""
	args := ArecordArgs(cfg)
	want := []string{"-q", "-D", "default", "-f", "S16_LE", "-c", "1", "-r", "16000", "-t", "raw"}
	if len(args) != len(want) {
		t.Fatalf("ArecordArgs() = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
}
