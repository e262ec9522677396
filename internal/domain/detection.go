package domain

// DetectionBox is a detected region normalized to [0,1] relative to the
// video frame, plus the detector confidence.
type DetectionBox struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

// Point is a position in surface pixels.
type Point struct {
	X float64
	Y float64
}

// Overlay is one rendered frame of the detection overlay in surface pixels:
// four L-shaped corner marks and a score label above the box.
type Overlay struct {
	Corners   [4][3]Point
	Label     string
	LabelAt   Point
	LineWidth float64
}
