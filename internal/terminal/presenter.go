// Package terminal renders the capture pages as terminal output.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"ekyc_capture/native/internal/domain"
)

// Presenter implements domain.Presenter on a terminal. Per-frame calls
// (overlay draws, frame counts) only update state; lines are printed when
// something a user would notice changes.
type Presenter struct {
	out    io.Writer
	width  float64
	height float64

	mu    sync.Mutex
	state State
}

// State is the presentation state as last published by the engine.
type State struct {
	Connection   domain.ConnectionState
	ConnText     string
	ICE          string
	Status       domain.Status
	StatusText   string
	Progress     int
	Frames       int
	Flashes      int
	FaceDetected bool
	Score        int
	Result       string
	Control      domain.CaptureControl
	NextEnabled  bool
	Fields       []domain.FieldValue
	FieldCount   int
	Confidence   int
	Overlay      *domain.Overlay
	Draws        int
	Logs         int
}

// New creates a presenter writing to out (stdout when nil) for a display of
// the given size.
func New(out io.Writer, width, height int) *Presenter {
	if out == nil {
		out = os.Stdout
	}
	return &Presenter{
		out:    out,
		width:  float64(width),
		height: float64(height),
		state: State{
			Connection: domain.ConnDisconnected,
			ICE:        "—",
			Control:    domain.CaptureDisabled,
		},
	}
}

// Snapshot returns a copy of the current state.
func (p *Presenter) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Fields = append([]domain.FieldValue(nil), p.state.Fields...)
	if p.state.Overlay != nil {
		o := *p.state.Overlay
		s.Overlay = &o
	}
	return s
}

func (p *Presenter) SetConnection(state domain.ConnectionState, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Connection == state && p.state.ConnText == text {
		return
	}
	p.state.Connection, p.state.ConnText = state, text

	msg := fmt.Sprintf("connection %s", state)
	if text != "" {
		msg += ": " + text
	}
	switch state {
	case domain.ConnConnected:
		pterm.Success.WithWriter(p.out).Println(msg)
	case domain.ConnError:
		pterm.Error.WithWriter(p.out).Println(msg)
	default:
		pterm.Info.WithWriter(p.out).Println(msg)
	}
}

func (p *Presenter) SetICEState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.ICE == state {
		return
	}
	p.state.ICE = state
	pterm.Info.WithWriter(p.out).Println("ICE " + state)
}

func (p *Presenter) DisplaySize() (width, height float64) {
	return p.width, p.height
}

func (p *Presenter) ClearOverlay() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Overlay == nil {
		return
	}
	p.state.Overlay = nil
	p.println(pterm.FgGray, "overlay cleared")
}

func (p *Presenter) DrawOverlay(o domain.Overlay) {
	p.mu.Lock()
	defer p.mu.Unlock()
	first := p.state.Overlay == nil
	p.state.Overlay = &o
	p.state.Draws++
	if first {
		tl := o.Corners[0][1]
		p.println(pterm.FgYellow, fmt.Sprintf("overlay %s at (%.0f, %.0f)", o.Label, tl.X, tl.Y))
	}
}

var badges = map[domain.Status]*pterm.Style{
	domain.StatusIdle:     pterm.NewStyle(pterm.FgGray),
	domain.StatusScanning: pterm.NewStyle(pterm.FgCyan),
	domain.StatusSuccess:  pterm.NewStyle(pterm.FgGreen, pterm.Bold),
	domain.StatusFailed:   pterm.NewStyle(pterm.FgRed, pterm.Bold),
}

func (p *Presenter) SetStatus(status domain.Status, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status, p.state.StatusText = status, text

	badge := badges[status]
	if badge == nil {
		badge = pterm.NewStyle(pterm.FgDefault)
	}
	fmt.Fprintf(p.out, "%s %s\n", badge.Sprint("["+strings.ToUpper(string(status))+"]"), text)
}

func (p *Presenter) SetProgress(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Progress == percent {
		return
	}
	p.state.Progress = percent
	fmt.Fprintf(p.out, "progress %s %d%%\n", bar(percent, 20), percent)
}

func (p *Presenter) SetFrameCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Frames = n
}

func (p *Presenter) Flash() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Flashes++
}

func (p *Presenter) SetFaceDetected(detected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.FaceDetected == detected {
		return
	}
	p.state.FaceDetected = detected
	if detected {
		p.println(pterm.FgCyan, "face detected")
	}
}

func (p *Presenter) SetScore(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Score = percent
	fmt.Fprintf(p.out, "score %d%%\n", percent)
}

func (p *Presenter) SetResult(label string, live bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Result = label
	if live {
		pterm.Success.WithWriter(p.out).Println(label)
		return
	}
	pterm.Error.WithWriter(p.out).Println(label)
}

func (p *Presenter) SetCaptureControl(c domain.CaptureControl) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Control == c {
		return
	}
	p.state.Control = c
	switch c {
	case domain.CaptureActive:
		p.println(pterm.FgGreen, "capture ready (press c + enter)")
	case domain.CaptureProcessing:
		p.println(pterm.FgGray, "capture processing...")
	default:
		p.println(pterm.FgGray, "capture disabled")
	}
}

func (p *Presenter) SetNextEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.NextEnabled == enabled {
		return
	}
	p.state.NextEnabled = enabled
	if enabled {
		pterm.Success.WithWriter(p.out).Println("next step available: run with -flow liveness")
	}
}

func (p *Presenter) SetFields(values []domain.FieldValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Fields = append([]domain.FieldValue(nil), values...)

	data := pterm.TableData{{"Field", "Value"}}
	for _, v := range values {
		value := v.Value
		if !v.Filled {
			value = "—"
		}
		data = append(data, []string{v.Label, value})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		pterm.Error.WithWriter(p.out).Println(err.Error())
		return
	}
	fmt.Fprintln(p.out, table)
}

func (p *Presenter) SetFieldCount(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.FieldCount = n
	fmt.Fprintf(p.out, "fields read %d\n", n)
}

func (p *Presenter) SetConfidence(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Confidence = percent
	fmt.Fprintf(p.out, "confidence %d%%\n", percent)
}

func (p *Presenter) AppendLog(entry domain.LogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Logs++

	var color pterm.Color
	switch entry.Level {
	case domain.LogSuccess:
		color = pterm.FgGreen
	case domain.LogError:
		color = pterm.FgRed
	default:
		color = pterm.FgLightBlue
	}
	line := entry.Time.Format("15:04:05") + " " + entry.Message
	if len(entry.Data) > 0 {
		line += " " + formatData(entry.Data)
	}
	p.println(color, line)
}

func (p *Presenter) println(color pterm.Color, s string) {
	fmt.Fprintln(p.out, color.Sprint(s))
}

func bar(percent, width int) string {
	filled := int(math.Round(float64(percent) / 100 * float64(width)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func formatData(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
