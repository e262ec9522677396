package flow

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
)

// SuccessPercent is the minimum field completion for a usable document read.
const SuccessPercent = 60

const (
	textDetected   = "✦ Document detected, ready to capture"
	textWaiting    = "⏳ Waiting for document..."
	textProcessing = "⟳ Processing OCR..."
	textRead       = "✓ Document data read"

	saveTimeout = 5 * time.Second
)

// Overlay is the part of the renderer the document flow drives.
type Overlay interface {
	SetTarget(box domain.DetectionBox, now time.Time)
	ClearTarget()
	SyncSize()
}

// Document drives the identity document capture page.
type Document struct {
	page
	view   domain.DocumentView
	fields domain.CaptureFieldSet
	store  domain.ResultStore
	log    logrus.FieldLogger
	now    func() time.Time

	overlay   Overlay
	detected  bool
	succeeded bool
	control   domain.CaptureControl

	saves sync.WaitGroup
}

// NewDocument creates the document flow. Call SetOverlay before dispatching
// events.
func NewDocument(view domain.DocumentView, fields domain.CaptureFieldSet, store domain.ResultStore,
	activity *ActivityLog, log logrus.FieldLogger, now func() time.Time) *Document {
	if now == nil {
		now = time.Now
	}
	return &Document{
		page:    newPage(view, activity),
		view:    view,
		fields:  fields,
		store:   store,
		log:     log,
		now:     now,
		control: domain.CaptureDisabled,
	}
}

// SetOverlay injects the renderer after construction; the renderer in turn
// reports expiry back through OnTargetExpired.
func (d *Document) SetOverlay(o Overlay) {
	d.overlay = o
}

// Begin shows the startup state.
func (d *Document) Begin() {
	d.setControl(domain.CaptureDisabled)
	d.status.Transition(domain.StatusScanning, textInitialising)
}

// Detected reports whether a document is currently marked detected.
func (d *Document) Detected() bool {
	return d.detected
}

// Succeeded reports whether a usable document read has arrived.
func (d *Document) Succeeded() bool {
	return d.succeeded
}

// Control returns the capture control state.
func (d *Document) Control() domain.CaptureControl {
	return d.control
}

// RequestCapture sends the capture command when a document is detected and
// the capture control accepts clicks, and reports whether it did.
func (d *Document) RequestCapture(send func(v any) error) (bool, error) {
	if !d.detected || !d.control.Enabled() {
		return false, nil
	}
	if err := send(event.CaptureCommand); err != nil {
		return false, fmt.Errorf("send capture: %w", err)
	}
	return true, nil
}

// OnTargetExpired is called by the renderer when the box goes stale.
func (d *Document) OnTargetExpired() {
	d.setDetected(false)
}

// Flush waits for pending result saves.
func (d *Document) Flush() {
	d.saves.Wait()
}

// Reset clears detection state for a stopped session.
func (d *Document) Reset() {
	d.detected = false
	d.setControl(domain.CaptureDisabled)
}

func (d *Document) OnYoloResult(ev event.YoloResult) {
	if len(ev.Boxes) == 0 {
		return
	}
	// Single target: only the best box is tracked.
	if d.overlay != nil {
		d.overlay.SetTarget(ev.Boxes[0], d.now())
		d.overlay.SyncSize()
	}
	d.setDetected(true)
}

func (d *Document) OnNoKTP(event.NoKTP) {
	if d.overlay != nil {
		d.overlay.ClearTarget()
	}
	if d.succeeded {
		return
	}
	d.setDetected(false)
}

func (d *Document) OnCaptureProcessing(event.CaptureProcessing) {
	d.setControl(domain.CaptureProcessing)
	d.status.Transition(domain.StatusScanning, textProcessing)
}

func (d *Document) OnKTPResult(ev event.KTPResult) {
	c := d.fields.Evaluate(ev.Data)

	d.view.SetFields(c.Values)
	d.view.SetProgress(c.Percent)
	d.view.SetFieldCount(c.Filled)
	if ev.ConfidenceAvg > 0 {
		d.view.SetConfidence(int(math.Round(ev.ConfidenceAvg * 100)))
	}

	data := map[string]any{"filled": c.Filled, "total": c.Total, "percent": c.Percent}
	if c.Percent >= SuccessPercent {
		d.succeeded = true
		d.status.Transition(domain.StatusSuccess, textRead)
		d.view.SetNextEnabled(true)
		d.activity.Add(domain.LogSuccess, fmt.Sprintf("Document read: %d/%d fields", c.Filled, c.Total), data)
	} else if !d.succeeded {
		d.status.Transition(domain.StatusScanning, fmt.Sprintf("⟳ Only %d%% of fields read, capture again", c.Percent))
		d.activity.Add(domain.LogInfo, fmt.Sprintf("Document partially read: %d/%d fields", c.Filled, c.Total), data)
	}

	d.save(ev.Data)
	d.restoreControl()
	d.view.Flash()
}

func (d *Document) OnCaptureFailed(ev event.CaptureFailed) {
	err := &domain.CaptureFailedError{Reason: ev.Reason}
	d.status.Transition(domain.StatusFailed, "✗ "+ev.Reason)
	d.restoreControl()
	d.activity.Add(domain.LogError, err.Error(), nil)
}

// Face events do not concern this page.

func (d *Document) OnFaceDetected(event.FaceDetected)     {}
func (d *Document) OnLivenessResult(event.LivenessResult) {}

func (d *Document) setDetected(detected bool) {
	d.detected = detected

	if detected {
		// An OCR request is in flight; its result restores the control.
		if d.control == domain.CaptureProcessing {
			return
		}
		if d.control != domain.CaptureActive {
			d.setControl(domain.CaptureActive)
		}
		if !d.succeeded && d.status.Text() != textDetected {
			d.status.Transition(domain.StatusScanning, textDetected)
		}
		return
	}

	d.setControl(domain.CaptureDisabled)
	if d.status.Text() == textDetected {
		d.status.Transition(domain.StatusIdle, textWaiting)
	}
}

// restoreControl re-enables capture iff a document is still detected.
func (d *Document) restoreControl() {
	if d.detected {
		d.setControl(domain.CaptureActive)
		return
	}
	d.setControl(domain.CaptureDisabled)
}

func (d *Document) setControl(c domain.CaptureControl) {
	d.control = c
	d.view.SetCaptureControl(c)
}

// save hands the result to the store off the event loop.
func (d *Document) save(data map[string]string) {
	if d.store == nil {
		return
	}
	cp := make(map[string]string, len(data))
	for k, v := range data {
		cp[k] = v
	}

	d.saves.Add(1)
	go func() {
		defer d.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := d.store.SaveDocument(ctx, cp); err != nil {
			d.log.Warnf("[document] save result: %v", err)
		}
	}()
}
