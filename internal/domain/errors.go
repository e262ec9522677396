package domain

import "errors"

var (
	// ErrCameraUnavailable is returned when the local camera is denied or absent.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrSignaling is returned when the signaling channel fails to open or errors.
	ErrSignaling = errors.New("signaling channel error")
	// ErrNegotiationFailed is returned when the offer/answer exchange fails.
	ErrNegotiationFailed = errors.New("server negotiation failed")
	// ErrMalformedMessage marks an inbound payload that could not be decoded.
	ErrMalformedMessage = errors.New("malformed message")
)

// CaptureFailedError is a backend-reported capture failure. It is
// recoverable: the user may capture again.
type CaptureFailedError struct {
	Reason string
}

func (e *CaptureFailedError) Error() string {
	return "capture failed: " + e.Reason
}
