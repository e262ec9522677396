package flow

import (
	"context"
	"sync"
	"time"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/logger"
)

// fakeView records what the flows publish.
type fakeView struct {
	status       domain.Status
	statusText   string
	transitions  int
	progress     int
	frames       int
	flashes      int
	faceDetected bool
	score        int
	resultLabel  string
	resultLive   bool
	control      domain.CaptureControl
	nextEnabled  bool
	fields       []domain.FieldValue
	fieldCount   int
	confidence   int
	logs         []domain.LogEntry
}

func (v *fakeView) SetStatus(s domain.Status, text string) {
	v.status, v.statusText = s, text
	v.transitions++
}
func (v *fakeView) SetProgress(p int)                         { v.progress = p }
func (v *fakeView) SetFrameCount(n int)                       { v.frames = n }
func (v *fakeView) Flash()                                    { v.flashes++ }
func (v *fakeView) SetFaceDetected(d bool)                    { v.faceDetected = d }
func (v *fakeView) SetScore(p int)                            { v.score = p }
func (v *fakeView) SetResult(label string, live bool)         { v.resultLabel, v.resultLive = label, live }
func (v *fakeView) SetCaptureControl(c domain.CaptureControl) { v.control = c }
func (v *fakeView) SetNextEnabled(e bool)                     { v.nextEnabled = e }
func (v *fakeView) SetFields(f []domain.FieldValue)           { v.fields = f }
func (v *fakeView) SetFieldCount(n int)                       { v.fieldCount = n }
func (v *fakeView) SetConfidence(p int)                       { v.confidence = p }
func (v *fakeView) AppendLog(e domain.LogEntry)               { v.logs = append(v.logs, e) }

// fakeOverlay records renderer calls.
type fakeOverlay struct {
	target  *domain.DetectionBox
	seenAt  time.Time
	clears  int
	resyncs int
}

func (o *fakeOverlay) SetTarget(b domain.DetectionBox, now time.Time) {
	o.target = &b
	o.seenAt = now
}
func (o *fakeOverlay) ClearTarget() {
	o.target = nil
	o.clears++
}
func (o *fakeOverlay) SyncSize() { o.resyncs++ }

// memStore is an in-memory ResultStore.
type memStore struct {
	mu      sync.Mutex
	data    map[string]string
	loadErr error
}

func (s *memStore) SaveDocument(_ context.Context, d map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	return nil
}

func (s *memStore) LoadDocument(context.Context) (map[string]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	return s.data, s.data != nil, nil
}

func newActivity(v *fakeView) *ActivityLog {
	return NewActivityLog(v, logger.Discard(), nil)
}
