package flow

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
)

// Liveness drives the face liveness page.
type Liveness struct {
	page
	view domain.LivenessView
	log  logrus.FieldLogger
}

// NewLiveness creates the liveness flow.
func NewLiveness(view domain.LivenessView, activity *ActivityLog, log logrus.FieldLogger) *Liveness {
	return &Liveness{
		page: newPage(view, activity),
		view: view,
		log:  log,
	}
}

// Begin shows the startup state and, when a document was captured earlier in
// the session, logs who it belongs to.
func (l *Liveness) Begin(ctx context.Context, store domain.ResultStore) {
	if store != nil {
		data, ok, err := store.LoadDocument(ctx)
		switch {
		case err != nil:
			l.log.Warnf("[liveness] load stored document: %v", err)
		case ok:
			l.activity.Add(domain.LogInfo, fmt.Sprintf("Document data loaded: %s (NIK: %s)",
				orDash(data["nama"]), orDash(data["nik"])), nil)
		}
	}
	l.status.Transition(domain.StatusScanning, textInitialising)
}

func (l *Liveness) OnFaceDetected(event.FaceDetected) {
	l.view.SetFaceDetected(true)
	l.status.Transition(domain.StatusScanning, "⟳ Face detected, analysing...")
	l.activity.Add(domain.LogInfo, "Face detected.", nil)
}

func (l *Liveness) OnLivenessResult(ev event.LivenessResult) {
	pct := int(math.Round(ev.Score * 100))

	l.view.SetProgress(pct)
	l.view.SetScore(pct)

	data := map[string]any{"score": ev.Score, "is_live": ev.IsLive}
	if ev.IsLive {
		l.status.Transition(domain.StatusSuccess, "✓ Live face verified")
		l.view.SetResult("LIVE", true)
		l.activity.Add(domain.LogSuccess, fmt.Sprintf("Liveness verified: score %d%%", pct), data)
		return
	}
	l.status.Transition(domain.StatusFailed, "✗ Face not verified")
	l.view.SetResult("FAKE", false)
	l.activity.Add(domain.LogError, fmt.Sprintf("Liveness failed: score %d%%", pct), data)
}

// Document events do not concern this page.

func (l *Liveness) OnYoloResult(event.YoloResult)               {}
func (l *Liveness) OnNoKTP(event.NoKTP)                         {}
func (l *Liveness) OnCaptureProcessing(event.CaptureProcessing) {}
func (l *Liveness) OnKTPResult(event.KTPResult)                 {}
func (l *Liveness) OnCaptureFailed(event.CaptureFailed)         {}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
