package obstacle

// MinConfidence is the detection confidence an object needs before it
// raises an alert.
const MinConfidence = 0.7

// MapLabel maps a COCO class name to an alert label.
// ok is false for objects that should not stop the robot.
func MapLabel(label string) (alert string, ok bool) {
	switch label {
	case "person":
		return "Human", true
	case "chair":
		return "Chair", true
	case "door":
		return "Door", true
	case "couch", "bed", "dining table":
		return "Obstacle", true
	}
	return "", false
}

// Detection is the minimal view of an object detection needed for alerts.
type Detection struct {
	Label      string
	Confidence float64
}

// Alerts reduces detections to an alert set, ignoring unmapped labels and
// anything at or below minConfidence.
func Alerts(dets []Detection, minConfidence float64) AlertSet {
	var out AlertSet
	for _, d := range dets {
		if d.Confidence <= minConfidence {
			continue
		}
		if alert, ok := MapLabel(d.Label); ok {
			out = append(out, alert)
		}
	}
	return out.Normalize()
}
