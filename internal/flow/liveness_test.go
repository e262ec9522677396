package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
	"ekyc_capture/native/internal/logger"
)

func newLiveness() (*Liveness, *Dispatcher, *fakeView) {
	v := &fakeView{}
	l := NewLiveness(v, newActivity(v), logger.Discard())
	return l, NewDispatcher(l, logger.Discard()), v
}

func TestLiveness_LiveResult(t *testing.T) {
	l, d, v := newLiveness()

	d.Dispatch(event.LivenessResult{Score: 0.82, IsLive: true})

	if v.score != 82 || v.progress != 82 {
		t.Errorf("expected 82%%, got score=%d progress=%d", v.score, v.progress)
	}
	if l.Status() != domain.StatusSuccess {
		t.Errorf("expected success, got %s", l.Status())
	}
	if v.resultLabel != "LIVE" || !v.resultLive {
		t.Errorf("expected LIVE, got %q live=%v", v.resultLabel, v.resultLive)
	}
	last := v.logs[len(v.logs)-1]
	if last.Level != domain.LogSuccess || last.Data["score"] != 0.82 || last.Data["is_live"] != true {
		t.Errorf("unexpected log entry %+v", last)
	}
}

func TestLiveness_FakeResult(t *testing.T) {
	l, d, v := newLiveness()

	d.Dispatch(event.LivenessResult{Score: 0.314, IsLive: false})

	if l.Status() != domain.StatusFailed {
		t.Errorf("expected failed, got %s", l.Status())
	}
	if v.resultLabel != "FAKE" || v.resultLive {
		t.Errorf("expected FAKE, got %q", v.resultLabel)
	}
	if v.score != 31 {
		t.Errorf("expected 31%%, got %d", v.score)
	}
}

func TestLiveness_FaceDetectedScans(t *testing.T) {
	l, d, v := newLiveness()

	d.Dispatch(event.FaceDetected{})

	if !v.faceDetected {
		t.Error("expected face indicator detected")
	}
	if l.Status() != domain.StatusScanning {
		t.Errorf("expected scanning, got %s", l.Status())
	}
}

func TestLiveness_FrameCounterAndFlash(t *testing.T) {
	l, d, v := newLiveness()

	for i := 0; i < 3; i++ {
		d.Dispatch(event.FrameReceived{})
	}

	if l.Frames() != 3 || v.frames != 3 || v.flashes != 3 {
		t.Errorf("expected 3 frames and flashes, got %d/%d/%d", l.Frames(), v.frames, v.flashes)
	}
}

func TestLiveness_IgnoresDocumentEvents(t *testing.T) {
	l, d, v := newLiveness()

	d.Dispatch(event.YoloResult{Boxes: []domain.DetectionBox{{X: 0.1}}})
	d.Dispatch(event.KTPResult{Data: map[string]string{"nik": "1"}})
	d.Dispatch(event.CaptureFailed{Reason: "x"})

	if v.transitions != 0 || l.Status() != domain.StatusIdle {
		t.Errorf("document events must not change liveness state")
	}
}

func TestLiveness_BeginLoadsStoredDocument(t *testing.T) {
	l, _, v := newLiveness()
	store := &memStore{data: map[string]string{"nik": "3171", "nama": "Budi"}}

	l.Begin(context.Background(), store)

	if len(v.logs) != 1 || !strings.Contains(v.logs[0].Message, "Budi (NIK: 3171)") {
		t.Errorf("expected stored document log, got %+v", v.logs)
	}
	if v.status != domain.StatusScanning {
		t.Errorf("expected scanning on begin, got %s", v.status)
	}
}

func TestLiveness_BeginWithoutStoredDocument(t *testing.T) {
	l, _, v := newLiveness()

	l.Begin(context.Background(), &memStore{loadErr: errors.New("down")})
	l.Begin(context.Background(), nil)

	if len(v.logs) != 0 {
		t.Errorf("expected no activity entries, got %+v", v.logs)
	}
}
