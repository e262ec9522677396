package event

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"ekyc_capture/native/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the union of every inbound message shape.
type envelope struct {
	Event         string                `json:"event"`
	Message       string                `json:"message,omitempty"`
	Score         *float64              `json:"score,omitempty"`
	IsLive        *bool                 `json:"is_live,omitempty"`
	Boxes         []domain.DetectionBox `json:"boxes,omitempty"`
	Data          map[string]any        `json:"data,omitempty"`
	ConfidenceAvg *float64              `json:"confidence_avg,omitempty"`
	Reason        string                `json:"reason,omitempty"`
}

// Decode parses one signaling message. Payloads that are not a JSON object
// return an error wrapping domain.ErrMalformedMessage; well-formed messages
// of an unhandled kind decode to Unknown.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	switch Kind(env.Event) {
	case KindConnected:
		return Connected{Message: env.Message}, nil
	case KindFrameReceived:
		return FrameReceived{}, nil
	case KindFaceDetected:
		return FaceDetected{}, nil
	case KindLivenessResult:
		ev := LivenessResult{}
		if env.Score != nil {
			ev.Score = *env.Score
		}
		if env.IsLive != nil {
			ev.IsLive = *env.IsLive
		}
		return ev, nil
	case KindYoloResult:
		return YoloResult{Boxes: env.Boxes}, nil
	case KindNoKTP:
		return NoKTP{}, nil
	case KindCaptureProcessing:
		return CaptureProcessing{Message: env.Message}, nil
	case KindKTPResult:
		return decodeKTPResult(env), nil
	case KindCaptureFailed:
		return CaptureFailed{Reason: env.Reason}, nil
	case KindPong:
		return Pong{}, nil
	default:
		return Unknown{Name: env.Event}, nil
	}
}

// decodeKTPResult flattens the OCR data to strings. The backend may place
// confidence_avg either next to the fields or at the top level.
func decodeKTPResult(env envelope) KTPResult {
	ev := KTPResult{Data: make(map[string]string, len(env.Data))}
	for k, v := range env.Data {
		switch val := v.(type) {
		case string:
			ev.Data[k] = val
		case float64:
			ev.Data[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			ev.Data[k] = strconv.FormatBool(val)
		}
	}

	if env.ConfidenceAvg != nil {
		ev.ConfidenceAvg = *env.ConfidenceAvg
	} else if c, ok := env.Data["confidence_avg"].(float64); ok {
		ev.ConfidenceAvg = c
	}
	return ev
}

// Command is a client to backend control message.
type Command struct {
	Event string `json:"event"`
}

var (
	// CaptureCommand asks the backend to OCR the last detected document.
	CaptureCommand = Command{Event: "capture"}
	// PingCommand is answered with a pong event.
	PingCommand = Command{Event: "ping"}
)

// Encode marshals an outbound message.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
