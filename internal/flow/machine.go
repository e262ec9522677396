package flow

import "ekyc_capture/native/internal/domain"

// Machine is the interaction state of one flow. Every transition is
// published to the view.
type Machine struct {
	view   domain.StatusView
	status domain.Status
	text   string
}

// NewMachine starts in idle without touching the view.
func NewMachine(view domain.StatusView) *Machine {
	return &Machine{view: view, status: domain.StatusIdle}
}

// Transition moves to status with the given badge text.
func (m *Machine) Transition(status domain.Status, text string) {
	m.status = status
	m.text = text
	m.view.SetStatus(status, text)
}

// Status returns the current state.
func (m *Machine) Status() domain.Status {
	return m.status
}

// Text returns the current badge text.
func (m *Machine) Text() string {
	return m.text
}
