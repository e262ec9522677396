package flow

import (
	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
)

const textInitialising = "⟳ Initialising camera..."

// page holds what every flow shows: the status badge, the frame counter and
// the activity log.
type page struct {
	view     domain.StatusView
	status   *Machine
	activity *ActivityLog
	frames   int
}

func newPage(view domain.StatusView, activity *ActivityLog) page {
	return page{
		view:     view,
		status:   NewMachine(view),
		activity: activity,
	}
}

func (p *page) OnConnected(ev event.Connected) {
	msg := "Connected to server."
	if ev.Message != "" {
		msg += " " + ev.Message
	}
	p.activity.Add(domain.LogInfo, msg, nil)
}

func (p *page) OnFrameReceived(event.FrameReceived) {
	p.frames++
	p.view.SetFrameCount(p.frames)
	p.view.Flash()
}

func (p *page) OnPong(event.Pong) {
	p.activity.log.Debugf("[flow] pong")
}

// Status returns the interaction state.
func (p *page) Status() domain.Status {
	return p.status.Status()
}

// StatusText returns the badge text.
func (p *page) StatusText() string {
	return p.status.Text()
}

// Frames returns the number of frame_received events seen.
func (p *page) Frames() int {
	return p.frames
}
