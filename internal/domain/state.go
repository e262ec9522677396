package domain

// ConnectionState is the state of the signaling channel as shown by the
// connection indicator.
type ConnectionState string

const (
	ConnDisconnected ConnectionState = "disconnected"
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnError        ConnectionState = "error"
)

// Status is the interaction state of a flow. Each status maps to one badge
// style.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
)

// CaptureControl is the presentation state of the capture button.
type CaptureControl string

const (
	CaptureDisabled   CaptureControl = "disabled"
	CaptureActive     CaptureControl = "active"
	CaptureProcessing CaptureControl = "processing"
)

// Enabled reports whether the control accepts clicks.
func (c CaptureControl) Enabled() bool {
	return c == CaptureActive
}

// Flow identifies which capture page the engine is driving.
type Flow string

const (
	FlowDocument Flow = "document"
	FlowLiveness Flow = "liveness"
)

// LogLevel classifies activity log entries.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogError   LogLevel = "error"
)
