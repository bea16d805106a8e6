package yolo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/nova-guide/internal/log"
	"github.com/teslashibe/nova-guide/pkg/obstacle"
	"github.com/teslashibe/nova-guide/pkg/vision"
)

// ErrNoCamera means none of the candidate camera indices opened.
var ErrNoCamera = errors.New("yolo: no camera available")

// OpenCamera tries each index in order and returns the first camera that
// opens.
func OpenCamera(indices []int, logger *slog.Logger) (*gocv.VideoCapture, int, error) {
	for _, idx := range indices {
		cam, err := gocv.OpenVideoCapture(idx)
		if err == nil && cam.IsOpened() {
			logger.Info("camera opened", "index", idx)
			return cam, idx, nil
		}
		if cam != nil {
			cam.Close()
		}
		logger.Debug("camera failed to open", "index", idx, "error", err)
	}
	return nil, -1, ErrNoCamera
}

// Sensor pairs a camera with a detector and implements vision.Sensor.
type Sensor struct {
	cam      *gocv.VideoCapture
	detector *Detector
	frame    gocv.Mat

	mu      sync.Mutex
	closed  bool
	camOnce sync.Once
	camErr  error
}

// Open builds a sensor from vision settings. Any failure is reported as
// vision.ErrUnavailable so the caller can run without vision.
func Open(cfg vision.Config, logger *slog.Logger) (*Sensor, error) {
	logger = log.OrDefault(logger, "vision.yolo")

	detector, err := NewDetector(Config{
		ModelPath:        cfg.ModelPath,
		ConfidenceThresh: float32(cfg.Confidence),
		NMSThresh:        float32(cfg.NMS),
		InputSize:        cfg.InputSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vision.ErrUnavailable, err)
	}
	logger.Info("model loaded", "model", cfg.ModelPath)

	cam, _, err := OpenCamera(cfg.CameraIndices, logger)
	if err != nil {
		detector.Close()
		return nil, fmt.Errorf("%w: %v", vision.ErrUnavailable, err)
	}

	return &Sensor{cam: cam, detector: detector, frame: gocv.NewMat()}, nil
}

// Sense implements vision.Sensor.
func (s *Sensor) Sense(ctx context.Context) ([]obstacle.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("yolo: sensor closed")
	}
	if ok := s.cam.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, errors.New("yolo: camera read failed")
	}

	found, err := s.detector.Detect(s.frame)
	if err != nil {
		return nil, err
	}
	dets := make([]obstacle.Detection, 0, len(found))
	for _, d := range found {
		dets = append(dets, obstacle.Detection{Label: d.ClassName, Confidence: d.Confidence})
	}
	return dets, nil
}

// Close implements vision.Sensor. It does not wait for an in-flight Sense
// when the camera is wedged; the capture device is closed first to
// unblock it.
func (s *Sensor) Close() error {
	if !s.mu.TryLock() {
		return s.closeCamera()
	}
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	camErr := s.closeCamera()
	_ = s.frame.Close()
	return errors.Join(camErr, s.detector.Close())
}

func (s *Sensor) closeCamera() error {
	s.camOnce.Do(func() { s.camErr = s.cam.Close() })
	return s.camErr
}

var _ vision.Sensor = (*Sensor)(nil)
