package session

import (
	"context"
	"time"
)

const postQueue = 256

// Loop is the single goroutine that owns engine state. Everything that reads
// or writes flow and renderer state runs inside it, either as a display tick
// or as a posted closure.
type Loop struct {
	interval time.Duration
	tick     func(now time.Time)
	onExit   func()
	now      func() time.Time

	posts   chan func()
	started chan struct{}
	done    chan struct{}
}

// NewLoop creates a loop calling tick every interval. onExit runs on the
// loop goroutine after its context is cancelled.
func NewLoop(interval time.Duration, tick func(now time.Time), onExit func(), now func() time.Time) *Loop {
	if now == nil {
		now = time.Now
	}
	return &Loop{
		interval: interval,
		tick:     tick,
		onExit:   onExit,
		now:      now,
		posts:    make(chan func(), postQueue),
		started:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled. It must be called once.
func (l *Loop) Run(ctx context.Context) {
	close(l.started)
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if l.onExit != nil {
				l.onExit()
			}
			return
		case fn := <-l.posts:
			fn()
		case <-ticker.C:
			if l.tick != nil {
				l.tick(l.now())
			}
		}
	}
}

// Post queues fn to run on the loop. It reports false when the loop has
// exited and fn will never run.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.posts <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it. It reports false when the loop
// exited first.
func (l *Loop) Do(fn func()) bool {
	ran := make(chan struct{})
	if !l.Post(func() {
		fn()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-l.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Started reports whether Run has been called.
func (l *Loop) Started() bool {
	select {
	case <-l.started:
		return true
	default:
		return false
	}
}
