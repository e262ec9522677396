package overlay

import (
	"math"
	"testing"
	"time"

	"ekyc_capture/native/internal/domain"
)

// fakeSurface records draw calls.
type fakeSurface struct {
	width, height float64
	draws         []domain.Overlay
	clears        int
}

func (s *fakeSurface) DisplaySize() (float64, float64) { return s.width, s.height }
func (s *fakeSurface) ClearOverlay()                   { s.clears++ }
func (s *fakeSurface) DrawOverlay(o domain.Overlay)    { s.draws = append(s.draws, o) }

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func newTestRenderer() (*Renderer, *fakeSurface, *int) {
	s := &fakeSurface{width: 640, height: 480}
	expired := 0
	r := NewRenderer(s, func() { expired++ })
	return r, s, &expired
}

func TestTick_EmptyDrawsNothing(t *testing.T) {
	r, s, _ := newTestRenderer()

	r.Tick(time.Now())

	if len(s.draws) != 0 {
		t.Errorf("expected no draws, got %d", len(s.draws))
	}
	if r.State() != Empty {
		t.Errorf("expected Empty, got %s", r.State())
	}
}

func TestTick_FirstTickSnapsToTarget(t *testing.T) {
	r, s, _ := newTestRenderer()
	now := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.5, H: 0.5, Score: 0.9}, now)
	r.Tick(now)

	cur, ok := r.Current()
	if !ok {
		t.Fatal("expected a current box")
	}
	if cur.X != 0.1 || cur.Y != 0.1 || cur.W != 0.5 || cur.H != 0.5 {
		t.Errorf("expected exact snap to target, got %+v", cur)
	}
	if r.State() != Tracking {
		t.Errorf("expected Tracking, got %s", r.State())
	}
	if len(s.draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(s.draws))
	}
}

func TestTick_MovesTwelvePercentOfGap(t *testing.T) {
	r, _, _ := newTestRenderer()
	now := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.5, H: 0.5, Score: 0.9}, now)
	r.Tick(now)

	r.SetTarget(domain.DetectionBox{X: 0.2, Y: 0.1, W: 0.5, H: 0.5, Score: 0.8}, now)

	prevGap := 0.1
	x := 0.1
	for i := 0; i < 5; i++ {
		r.Tick(now)
		cur, _ := r.Current()

		want := x + (0.2-x)*LerpFactor
		if !near(cur.X, want) {
			t.Fatalf("tick %d: expected x=%v, got %v", i, want, cur.X)
		}
		if !near(cur.Y, 0.1) || !near(cur.W, 0.5) || !near(cur.H, 0.5) {
			t.Errorf("tick %d: unchanged coordinates drifted: %+v", i, cur)
		}
		if cur.Score != 0.8 {
			t.Errorf("tick %d: score must be copied, got %v", i, cur.Score)
		}
		x = cur.X
		if gap := 0.2 - cur.X; gap > prevGap {
			t.Fatalf("tick %d: gap grew from %v to %v", i, prevGap, gap)
		}
		prevGap = 0.2 - cur.X
	}
}

func TestTick_ConvergesMonotonically(t *testing.T) {
	r, _, _ := newTestRenderer()
	now := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.9, Y: 0.0, W: 0.1, H: 0.9}, now)
	r.Tick(now)
	target := domain.DetectionBox{X: 0.05, Y: 0.7, W: 0.6, H: 0.2, Score: 1}
	r.SetTarget(target, now)

	gaps := func(b domain.DetectionBox) [4]float64 {
		return [4]float64{
			math.Abs(b.X - target.X), math.Abs(b.Y - target.Y),
			math.Abs(b.W - target.W), math.Abs(b.H - target.H),
		}
	}

	cur, _ := r.Current()
	prev := gaps(cur)
	for i := 0; i < 300; i++ {
		// Keep refreshing the target so the staleness window never elapses.
		at := now.Add(time.Duration(i) * 16 * time.Millisecond)
		r.SetTarget(target, at)
		r.Tick(at)
		cur, _ = r.Current()
		g := gaps(cur)
		for k := range g {
			if g[k] > prev[k] {
				t.Fatalf("tick %d: coordinate %d gap grew from %v to %v", i, k, prev[k], g[k])
			}
		}
		prev = g
	}
	for k, g := range prev {
		if g > 1e-6 {
			t.Errorf("coordinate %d did not converge, gap %v", k, g)
		}
	}
}

func TestTick_StaleTargetExpires(t *testing.T) {
	r, s, expired := newTestRenderer()
	start := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.5, H: 0.5, Score: 0.9}, start)
	r.Tick(start)

	r.Tick(start.Add(StaleAfter))
	if r.State() != Tracking {
		t.Fatalf("box must survive exactly %v", StaleAfter)
	}

	r.Tick(start.Add(StaleAfter + time.Millisecond))
	if r.State() != Empty {
		t.Errorf("expected Empty after staleness window")
	}
	if _, ok := r.Target(); ok {
		t.Errorf("expected target cleared")
	}
	if *expired != 1 {
		t.Errorf("expected expiry callback once, got %d", *expired)
	}
	if s.clears != 1 {
		t.Errorf("expected surface cleared once, got %d", s.clears)
	}

	// Further ticks do nothing.
	r.Tick(start.Add(10 * time.Second))
	if *expired != 1 {
		t.Errorf("expiry must not repeat, got %d", *expired)
	}
}

func TestTick_StaleRegardlessOfTickRate(t *testing.T) {
	r, _, expired := newTestRenderer()
	start := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, start)
	// No tick at all until long after the window.
	r.Tick(start.Add(9 * time.Second))

	if r.State() != Empty || *expired != 1 {
		t.Errorf("expected expiry on the first late tick, state=%s expired=%d", r.State(), *expired)
	}
}

func TestTick_RefreshKeepsBoxAlive(t *testing.T) {
	r, _, expired := newTestRenderer()
	start := time.Now()
	box := domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}

	for i := 0; i < 5; i++ {
		now := start.Add(time.Duration(i) * 3 * time.Second)
		r.SetTarget(box, now)
		r.Tick(now)
	}
	if *expired != 0 || r.State() != Tracking {
		t.Errorf("refreshed target must not expire")
	}
}

func TestClearTarget_KeepsDrawnBoxUntilStale(t *testing.T) {
	r, s, expired := newTestRenderer()
	start := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, start)
	r.Tick(start)
	r.ClearTarget()
	r.Tick(start.Add(time.Second))

	if len(s.draws) != 1 {
		t.Errorf("no redraw expected without a target, got %d draws", len(s.draws))
	}
	if r.State() != Tracking {
		t.Errorf("drawn box stays until stale")
	}

	r.Tick(start.Add(5 * time.Second))
	if r.State() != Empty || *expired != 1 {
		t.Errorf("expected expiry after the window")
	}
}

func TestGeometry_CornerBrackets(t *testing.T) {
	r, s, _ := newTestRenderer()
	now := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.25, Y: 0.5, W: 0.5, H: 0.25, Score: 0.876}, now)
	r.Tick(now)

	o := s.draws[0]
	// 640x480: x=160 y=240 w=320 h=120
	tl := o.Corners[0]
	if tl[0] != (domain.Point{X: 160, Y: 256}) || tl[1] != (domain.Point{X: 160, Y: 240}) || tl[2] != (domain.Point{X: 176, Y: 240}) {
		t.Errorf("unexpected top-left corner %+v", tl)
	}
	br := o.Corners[3]
	if br[1] != (domain.Point{X: 480, Y: 360}) {
		t.Errorf("unexpected bottom-right vertex %+v", br[1])
	}
	if o.Label != "KTP 88%" {
		t.Errorf("unexpected label %q", o.Label)
	}
	if o.LabelAt != (domain.Point{X: 166, Y: 234}) {
		t.Errorf("unexpected label position %+v", o.LabelAt)
	}
	if o.LineWidth != 2 {
		t.Errorf("unexpected line width %v", o.LineWidth)
	}
}

func TestResize_ScalesToNewFrame(t *testing.T) {
	r, s, _ := newTestRenderer()
	now := time.Now()

	s.width, s.height = 1280, 720
	r.SyncSize()
	if w, h := r.Size(); w != 1280 || h != 720 {
		t.Fatalf("expected 1280x720, got %vx%v", w, h)
	}

	r.SetTarget(domain.DetectionBox{X: 0.5, Y: 0.5, W: 0.1, H: 0.1}, now)
	r.Tick(now)
	if got := s.draws[0].Corners[0][1]; got != (domain.Point{X: 640, Y: 360}) {
		t.Errorf("unexpected origin %+v", got)
	}
}

func TestReset_ClearsEverything(t *testing.T) {
	r, s, expired := newTestRenderer()
	now := time.Now()

	r.SetTarget(domain.DetectionBox{X: 0.1, Y: 0.1, W: 0.2, H: 0.2}, now)
	r.Tick(now)
	r.Reset()
	r.Reset()

	if r.State() != Empty {
		t.Errorf("expected Empty after reset")
	}
	if s.clears != 2 {
		t.Errorf("expected 2 clears, got %d", s.clears)
	}
	r.Tick(now.Add(time.Minute))
	if *expired != 0 {
		t.Errorf("reset target must not expire later")
	}
}
