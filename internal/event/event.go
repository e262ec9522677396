// Package event defines the messages exchanged with the backend over the
// signaling channel.
package event

import "ekyc_capture/native/internal/domain"

// Kind is the value of the "event" discriminator.
type Kind string

const (
	KindConnected         Kind = "connected"
	KindFrameReceived     Kind = "frame_received"
	KindFaceDetected      Kind = "face_detected"
	KindLivenessResult    Kind = "liveness_result"
	KindYoloResult        Kind = "yolo_result"
	KindNoKTP             Kind = "no_ktp"
	KindCaptureProcessing Kind = "capture_processing"
	KindKTPResult         Kind = "ktp_result"
	KindCaptureFailed     Kind = "capture_failed"
	KindPong              Kind = "pong"
)

// Event is a decoded inbound message. The set of implementations is closed.
type Event interface {
	Kind() Kind
	sealed()
}

type Connected struct {
	Message string
}

type FrameReceived struct{}

type FaceDetected struct{}

type LivenessResult struct {
	Score  float64
	IsLive bool
}

// YoloResult carries document detections, best first.
type YoloResult struct {
	Boxes []domain.DetectionBox
}

type NoKTP struct{}

type CaptureProcessing struct {
	Message string
}

// KTPResult carries the OCR output keyed by field.
type KTPResult struct {
	Data          map[string]string
	ConfidenceAvg float64
}

type CaptureFailed struct {
	Reason string
}

type Pong struct{}

// Unknown is any message whose kind this client does not handle.
type Unknown struct {
	Name string
}

func (Connected) Kind() Kind         { return KindConnected }
func (FrameReceived) Kind() Kind     { return KindFrameReceived }
func (FaceDetected) Kind() Kind      { return KindFaceDetected }
func (LivenessResult) Kind() Kind    { return KindLivenessResult }
func (YoloResult) Kind() Kind        { return KindYoloResult }
func (NoKTP) Kind() Kind             { return KindNoKTP }
func (CaptureProcessing) Kind() Kind { return KindCaptureProcessing }
func (KTPResult) Kind() Kind         { return KindKTPResult }
func (CaptureFailed) Kind() Kind     { return KindCaptureFailed }
func (Pong) Kind() Kind              { return KindPong }
func (u Unknown) Kind() Kind         { return Kind(u.Name) }

func (Connected) sealed()         {}
func (FrameReceived) sealed()     {}
func (FaceDetected) sealed()      {}
func (LivenessResult) sealed()    {}
func (YoloResult) sealed()        {}
func (NoKTP) sealed()             {}
func (CaptureProcessing) sealed() {}
func (KTPResult) sealed()         {}
func (CaptureFailed) sealed()     {}
func (Pong) sealed()              {}
func (Unknown) sealed()           {}
