// Package overlay draws the detection box over the video, smoothing sparse
// detection updates into per-frame motion.
package overlay

import (
	"fmt"
	"math"
	"time"

	"ekyc_capture/native/internal/domain"
)

const (
	// StaleAfter is how long a target may go unrefreshed before it is dropped.
	StaleAfter = 4000 * time.Millisecond
	// LerpFactor is the fraction of the remaining gap closed per tick.
	LerpFactor = 0.12

	cornerSize  = 16
	lineWidth   = 2
	labelOffset = 6
)

// State is the renderer state.
type State int

const (
	Empty State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "empty"
}

// Renderer owns the rendered box. It is not safe for concurrent use; all
// calls are expected from the session event loop.
type Renderer struct {
	surface  domain.Surface
	onExpire func()
	label    string

	width  float64
	height float64

	target   *domain.DetectionBox
	current  *domain.DetectionBox
	lastSeen time.Time
}

// NewRenderer creates a renderer drawing on surface. onExpire is invoked
// when a target goes stale.
func NewRenderer(surface domain.Surface, onExpire func()) *Renderer {
	r := &Renderer{
		surface:  surface,
		onExpire: onExpire,
		label:    "KTP",
	}
	r.SyncSize()
	return r
}

// SyncSize reads the current pixel size from the surface. Call it on layout
// changes and when video metadata becomes available.
func (r *Renderer) SyncSize() {
	r.Resize(r.surface.DisplaySize())
}

// Resize sets the pixel reference frame for normalized coordinates.
func (r *Renderer) Resize(width, height float64) {
	r.width = width
	r.height = height
}

// Size returns the pixel reference frame.
func (r *Renderer) Size() (width, height float64) {
	return r.width, r.height
}

// SetTarget replaces the target wholesale and marks it seen at now.
func (r *Renderer) SetTarget(box domain.DetectionBox, now time.Time) {
	b := box
	r.target = &b
	r.lastSeen = now
}

// ClearTarget drops the target. The drawn box stays until the staleness
// window elapses.
func (r *Renderer) ClearTarget() {
	r.target = nil
}

// Reset drops all state and clears the surface.
func (r *Renderer) Reset() {
	r.target = nil
	r.current = nil
	r.lastSeen = time.Time{}
	r.surface.ClearOverlay()
}

// State reports whether a box is currently on the surface.
func (r *Renderer) State() State {
	if r.current != nil {
		return Tracking
	}
	return Empty
}

// Current returns the rendered box.
func (r *Renderer) Current() (domain.DetectionBox, bool) {
	if r.current == nil {
		return domain.DetectionBox{}, false
	}
	return *r.current, true
}

// Target returns the latest target.
func (r *Renderer) Target() (domain.DetectionBox, bool) {
	if r.target == nil {
		return domain.DetectionBox{}, false
	}
	return *r.target, true
}

// Tick advances the rendered box one display frame.
func (r *Renderer) Tick(now time.Time) {
	if !r.lastSeen.IsZero() && now.Sub(r.lastSeen) > StaleAfter {
		r.Reset()
		if r.onExpire != nil {
			r.onExpire()
		}
		return
	}

	if r.target == nil {
		return
	}

	// First frame after a target appears: no pop-in animation.
	if r.current == nil {
		c := *r.target
		r.current = &c
	}

	next := lerpBox(*r.current, *r.target, LerpFactor)
	r.current = &next

	r.surface.DrawOverlay(r.geometry(next))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpBox(cur, tgt domain.DetectionBox, t float64) domain.DetectionBox {
	return domain.DetectionBox{
		X:     lerp(cur.X, tgt.X, t),
		Y:     lerp(cur.Y, tgt.Y, t),
		W:     lerp(cur.W, tgt.W, t),
		H:     lerp(cur.H, tgt.H, t),
		Score: tgt.Score,
		Label: tgt.Label,
	}
}

// geometry scales a normalized box to corner brackets in surface pixels.
func (r *Renderer) geometry(box domain.DetectionBox) domain.Overlay {
	x := box.X * r.width
	y := box.Y * r.height
	w := box.W * r.width
	h := box.H * r.height
	cs := float64(cornerSize)

	return domain.Overlay{
		Corners: [4][3]domain.Point{
			{{X: x, Y: y + cs}, {X: x, Y: y}, {X: x + cs, Y: y}},
			{{X: x + w - cs, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + cs}},
			{{X: x, Y: y + h - cs}, {X: x, Y: y + h}, {X: x + cs, Y: y + h}},
			{{X: x + w - cs, Y: y + h}, {X: x + w, Y: y + h}, {X: x + w, Y: y + h - cs}},
		},
		Label:     fmt.Sprintf("%s %d%%", r.label, int(math.Round(box.Score*100))),
		LabelAt:   domain.Point{X: x + labelOffset, Y: y - labelOffset},
		LineWidth: lineWidth,
	}
}
