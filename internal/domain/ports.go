package domain

import (
	"context"
	"time"
)

// ConnectionIndicator shows signaling and ICE connectivity.
type ConnectionIndicator interface {
	SetConnection(state ConnectionState, text string)
	SetICEState(state string)
}

// Surface is the display area the detection overlay is drawn on.
type Surface interface {
	DisplaySize() (width, height float64)
	ClearOverlay()
	DrawOverlay(o Overlay)
}

// StatusView is the part of the page shared by every flow.
type StatusView interface {
	SetStatus(status Status, text string)
	SetProgress(percent int)
	SetFrameCount(n int)
	Flash()
}

// LivenessView renders the face liveness page.
type LivenessView interface {
	StatusView
	SetFaceDetected(detected bool)
	SetScore(percent int)
	SetResult(label string, live bool)
}

// DocumentView renders the document capture page.
type DocumentView interface {
	StatusView
	SetCaptureControl(c CaptureControl)
	SetNextEnabled(enabled bool)
	SetFields(values []FieldValue)
	SetFieldCount(n int)
	SetConfidence(percent int)
}

// LogEntry is one line of the activity log.
type LogEntry struct {
	Time    time.Time
	Level   LogLevel
	Message string
	Data    map[string]any
}

// LogView renders the activity log.
type LogView interface {
	AppendLog(entry LogEntry)
}

// Presenter is the full presentation port the engine drives.
type Presenter interface {
	ConnectionIndicator
	Surface
	LivenessView
	DocumentView
	LogView
}

// Stream is an acquired local camera stream.
type Stream interface {
	FrameSize() (width, height int)
	Stop()
}

// Camera acquires the local video stream.
type Camera interface {
	Open(ctx context.Context) (Stream, error)
}

// Peer manages the peer media connection to the backend.
type Peer interface {
	AddStream(s Stream) error
	SetOnICEStateChange(fn func(state string))
	CreateOffer() (SDPPayload, error)
	SetRemoteDescription(sdp SDPPayload) error
	Close()
}

// OfferExchanger posts a local offer and returns the remote answer.
type OfferExchanger interface {
	ExchangeOffer(ctx context.Context, endpoint string, offer SDPPayload) (SDPPayload, error)
}

// ResultStore keeps the document result for the next step of the flow.
type ResultStore interface {
	SaveDocument(ctx context.Context, data map[string]string) error
	LoadDocument(ctx context.Context) (map[string]string, bool, error)
}
