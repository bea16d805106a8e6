// Package yolo detects obstacles with a YOLOv8 ONNX model on frames from a
// local camera, using OpenCV through gocv.
package yolo

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ObjectDetection is one detected object.
type ObjectDetection struct {
	Box        image.Rectangle
	Confidence float64
	ClassID    int
	ClassName  string
}

// Config holds detector configuration.
type Config struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputSize        int
}

// DefaultConfig returns production defaults for YOLOv8n.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputSize:        640,
	}
}

// Detector runs YOLOv8 inference.
type Detector struct {
	net       gocv.Net
	cfg       Config
	mu        sync.Mutex
	inputSize image.Point
}

// NewDetector loads the ONNX model.
func NewDetector(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		cfg:       cfg,
		inputSize: image.Pt(cfg.InputSize, cfg.InputSize),
	}, nil
}

// Detect finds objects in a BGR frame.
func (d *Detector) Detect(img gocv.Mat) ([]ObjectDetection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parse(output, float32(img.Cols()), float32(img.Rows()))
}

// parse decodes the [1, 84, N] YOLOv8 output: 4 box values (cx, cy, w, h)
// followed by 80 class scores per candidate.
func (d *Detector) parse(output gocv.Mat, imgW, imgH float32) ([]ObjectDetection, error) {
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	attrs, n := sizes[1], sizes[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)
	scale := float32(d.cfg.InputSize)
	for i := 0; i < n; i++ {
		maxScore := float32(0)
		maxClass := 0
		for c := 4; c < attrs; c++ {
			if s := data[c*n+i]; s > maxScore {
				maxScore = s
				maxClass = c - 4
			}
		}
		if maxScore < d.cfg.ConfidenceThresh {
			continue
		}

		cx, cy := data[0*n+i], data[1*n+i]
		w, h := data[2*n+i], data[3*n+i]
		x1 := int((cx - w/2) * imgW / scale)
		y1 := int((cy - h/2) * imgH / scale)
		x2 := int((cx + w/2) * imgW / scale)
		y2 := int((cy + h/2) * imgH / scale)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClass)
	}
	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.cfg.ConfidenceThresh, d.cfg.NMSThresh)
	out := make([]ObjectDetection, 0, len(indices))
	for _, idx := range indices {
		out = append(out, ObjectDetection{
			Box:        boxes[idx],
			Confidence: float64(confidences[idx]),
			ClassID:    classIDs[idx],
			ClassName:  ClassName(classIDs[idx]),
		})
	}
	return out, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// ClassName returns the COCO name for id, or "" when out of range.
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClasses) {
		return ""
	}
	return COCOClasses[id]
}

// COCOClasses contains the 80 COCO class names.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
