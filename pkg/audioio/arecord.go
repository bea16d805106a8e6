package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// NewArecord returns a microphone that records through the arecord
// utility. Each capture runs its own arecord process which is killed on
// Close, so the ALSA device is free again once Close returns.
func NewArecord(cfg Config, logger *slog.Logger) (*Exclusive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := exec.LookPath("arecord"); err != nil {
		return nil, fmt.Errorf("audioio: arecord not found: %w", err)
	}
	open := func(ctx context.Context) (Capture, error) {
		return startArecord(ctx, cfg)
	}
	return NewExclusive(cfg, string(BackendArecord), open, logger), nil
}

// ArecordArgs returns the command line for a raw mono PCM16 capture.
func ArecordArgs(cfg Config) []string {
	device := cfg.Device
	if device == "" {
		device = "default"
	}
	return []string{
		"-q",
		"-D", device,
		"-f", "S16_LE",
		"-c", "1",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-t", "raw",
	}
}

type arecordCapture struct {
	cfg    Config
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	once sync.Once
}

func startArecord(ctx context.Context, cfg Config) (*arecordCapture, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "arecord", ArecordArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("audioio: arecord stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("audioio: start arecord: %w", err)
	}
	return &arecordCapture{cfg: cfg, cmd: cmd, stdout: stdout, cancel: cancel}, nil
}

func (a *arecordCapture) Read(ctx context.Context) (AudioChunk, error) {
	if err := ctx.Err(); err != nil {
		return AudioChunk{}, err
	}
	buf := make([]byte, a.cfg.FrameBytes())
	if _, err := io.ReadFull(a.stdout, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return AudioChunk{}, io.EOF
		}
		return AudioChunk{}, err
	}
	var chunk AudioChunk
	chunk.FromBytes(buf, a.cfg.SampleRate)
	return chunk, nil
}

func (a *arecordCapture) Close() error {
	a.once.Do(func() {
		a.cancel()
		_ = a.stdout.Close()
		// Killed by cancel; the exit status is expected to be non-zero.
		_ = a.cmd.Wait()
	})
	return nil
}
