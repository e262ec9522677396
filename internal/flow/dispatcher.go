// Package flow turns backend events into presentation state for the
// liveness and document capture pages.
package flow

import (
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/event"
)

// Handler receives one call per event kind. Every flow implements every
// method, so adding a kind to the event union fails to compile until each
// flow decides what to do with it.
type Handler interface {
	OnConnected(ev event.Connected)
	OnFrameReceived(ev event.FrameReceived)
	OnFaceDetected(ev event.FaceDetected)
	OnLivenessResult(ev event.LivenessResult)
	OnYoloResult(ev event.YoloResult)
	OnNoKTP(ev event.NoKTP)
	OnCaptureProcessing(ev event.CaptureProcessing)
	OnKTPResult(ev event.KTPResult)
	OnCaptureFailed(ev event.CaptureFailed)
	OnPong(ev event.Pong)
}

// Dispatcher routes decoded events to a flow. It does no I/O.
type Dispatcher struct {
	handler Handler
	log     logrus.FieldLogger
	ignored int
}

// NewDispatcher creates a dispatcher for handler.
func NewDispatcher(handler Handler, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{handler: handler, log: log}
}

// Dispatch routes ev. Unknown kinds are ignored.
func (d *Dispatcher) Dispatch(ev event.Event) {
	switch e := ev.(type) {
	case event.Connected:
		d.handler.OnConnected(e)
	case event.FrameReceived:
		d.handler.OnFrameReceived(e)
	case event.FaceDetected:
		d.handler.OnFaceDetected(e)
	case event.LivenessResult:
		d.handler.OnLivenessResult(e)
	case event.YoloResult:
		d.handler.OnYoloResult(e)
	case event.NoKTP:
		d.handler.OnNoKTP(e)
	case event.CaptureProcessing:
		d.handler.OnCaptureProcessing(e)
	case event.KTPResult:
		d.handler.OnKTPResult(e)
	case event.CaptureFailed:
		d.handler.OnCaptureFailed(e)
	case event.Pong:
		d.handler.OnPong(e)
	default:
		d.ignored++
		if ev != nil {
			d.log.Debugf("[dispatch] ignoring event %q", ev.Kind())
		}
	}
}

// Ignored returns how many events had no handler.
func (d *Dispatcher) Ignored() int {
	return d.ignored
}
