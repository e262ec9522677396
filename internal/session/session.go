// Package session negotiates the media session with the backend and runs
// the event loop that keeps the capture page in sync with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
	"ekyc_capture/native/internal/flow"
	"ekyc_capture/native/internal/overlay"
)

// ErrStopped is returned by Start when the session was stopped first.
var ErrStopped = errors.New("session stopped")

const (
	textCameraFailed = "camera failed"
	textServerError  = "server error"
	textSignalFailed = "connection failed"
	textICEFailed    = "ICE failed"
	iceIdle          = "—"
)

// Channel is an open signaling channel.
type Channel interface {
	Send(v any) error
	Close()
}

// DialFunc opens the signaling channel and returns once it is open.
type DialFunc func(ctx context.Context, url string, onEvent func(event.Event), onState func(domain.ConnectionState)) (Channel, error)

// Options wires a Session.
type Options struct {
	// ID identifies the session in logs. Empty generates one.
	ID            string
	Flow          domain.Flow
	NotifyURL     string
	OfferEndpoint string
	FrameInterval time.Duration
	Fields        domain.CaptureFieldSet

	Camera    domain.Camera
	NewPeer   func() (domain.Peer, error)
	Offers    domain.OfferExchanger
	Dial      DialFunc
	Presenter domain.Presenter
	Store     domain.ResultStore
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// Session is one capture session: camera, signaling channel and peer
// connection, plus the engine state they drive. A Session is started once.
type Session struct {
	id    string
	opts  Options
	log   logrus.FieldLogger
	now   func() time.Time
	view  domain.Presenter
	store domain.ResultStore

	loop       *Loop
	renderer   *overlay.Renderer
	dispatcher *flow.Dispatcher
	liveness   *flow.Liveness
	document   *flow.Document
	activity   *flow.ActivityLog

	mu      sync.Mutex
	started bool
	stopped bool
	// failure is the indicator text of a failed Start; it outlives Stop.
	failure string
	cancel  context.CancelFunc
	stream  domain.Stream
	channel Channel
	peer    domain.Peer
}

// New builds a session and its engine for opts.Flow.
func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	base := opts.Log
	if base == nil {
		base = logrus.StandardLogger()
	}
	log := base.WithField("session_id", id)
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}
	if opts.Fields == nil {
		opts.Fields = domain.KTPFields
	}

	s := &Session{
		id:    id,
		opts:  opts,
		log:   log,
		now:   now,
		view:  opts.Presenter,
		store: opts.Store,
	}
	s.activity = flow.NewActivityLog(s.view, log, now)

	var handler flow.Handler
	switch opts.Flow {
	case domain.FlowLiveness:
		s.liveness = flow.NewLiveness(s.view, s.activity, log)
		s.renderer = overlay.NewRenderer(s.view, nil)
		handler = s.liveness
	default:
		s.document = flow.NewDocument(s.view, opts.Fields, opts.Store, s.activity, log, now)
		s.renderer = overlay.NewRenderer(s.view, s.document.OnTargetExpired)
		s.document.SetOverlay(s.renderer)
		handler = s.document
	}
	s.dispatcher = flow.NewDispatcher(handler, log)
	s.loop = NewLoop(opts.FrameInterval, s.renderer.Tick, s.reset, now)

	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Start acquires the camera, opens the signaling channel and negotiates the
// peer connection. On failure the connection indicator shows the cause and
// whatever was acquired stays registered for Stop to release.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.loop.Run(ctx)

	s.log.Infof("[session] starting %s flow", s.opts.Flow)
	s.loop.Do(func() {
		s.view.SetICEState(iceIdle)
		if s.liveness != nil {
			s.liveness.Begin(ctx, s.store)
		} else {
			s.document.Begin()
		}
	})

	// Step 1: Acquire the camera
	stream, err := s.opts.Camera.Open(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
		}
		s.fail(textCameraFailed, err)
		return err
	}
	if !s.register(func() { s.stream = stream }) {
		stream.Stop()
		return ErrStopped
	}

	// Step 2: Resync the overlay to the video metadata
	w, h := stream.FrameSize()
	s.log.Infof("[session] camera ready %dx%d", w, h)
	s.loop.Post(s.renderer.SyncSize)

	// Step 3-4: Open the signaling channel and wait until it is open
	ch, err := s.opts.Dial(ctx, s.opts.NotifyURL, s.onEvent, s.onChannelState)
	if err != nil {
		if !errors.Is(err, domain.ErrSignaling) {
			err = fmt.Errorf("%w: %v", domain.ErrSignaling, err)
		}
		s.fail(textSignalFailed, err)
		return err
	}
	if !s.register(func() { s.channel = ch }) {
		ch.Close()
		return ErrStopped
	}

	// Step 5: Create the peer connection
	peer, err := s.opts.NewPeer()
	if err != nil {
		err = fmt.Errorf("%w: create peer: %v", domain.ErrNegotiationFailed, err)
		s.fail(textServerError, err)
		return err
	}
	if !s.register(func() { s.peer = peer }) {
		peer.Close()
		return ErrStopped
	}
	peer.SetOnICEStateChange(s.onICEState)

	// Step 6: Attach the local tracks
	if err := peer.AddStream(stream); err != nil {
		err = fmt.Errorf("%w: attach stream: %v", domain.ErrNegotiationFailed, err)
		s.fail(textServerError, err)
		return err
	}

	// Step 7: Offer/answer exchange
	offer, err := peer.CreateOffer()
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
		s.fail(textServerError, err)
		return err
	}
	answer, err := s.opts.Offers.ExchangeOffer(ctx, s.opts.OfferEndpoint, offer)
	if err != nil {
		if !errors.Is(err, domain.ErrNegotiationFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
		}
		s.fail(textServerError, err)
		return err
	}

	// Step 8: Apply the answer
	if err := peer.SetRemoteDescription(answer); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
		s.fail(textServerError, err)
		return err
	}

	s.log.Infof("[session] negotiation complete")
	return nil
}

// Stop releases everything Start acquired and resets the page. It may be
// called at any point, more than once, and from inside the event loop.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	peer, ch, stream := s.peer, s.channel, s.stream
	s.peer, s.channel, s.stream = nil, nil, nil
	s.mu.Unlock()

	s.log.Infof("[session] stopping")

	if cancel != nil {
		cancel()
	}
	if peer != nil {
		peer.Close()
	}
	if ch != nil {
		ch.Close()
	}
	if stream != nil {
		stream.Stop()
	}
	if s.document != nil {
		s.document.Flush()
	}

	// A running loop resets the page on exit; otherwise nothing else will.
	if !started {
		s.reset()
	}
}

// Done is closed once the session's event loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

// Capture asks the backend to read the document, if one is detected.
func (s *Session) Capture() {
	s.loop.Post(func() {
		if s.document == nil {
			return
		}
		ch := s.currentChannel()
		if ch == nil {
			return
		}
		sent, err := s.document.RequestCapture(ch.Send)
		if err != nil {
			s.activity.Add(domain.LogError, "Capture request failed", map[string]any{"error": err.Error()})
			return
		}
		if sent {
			s.log.Infof("[session] capture requested")
		}
	})
}

// Ping sends an application-level ping; the backend answers with pong.
func (s *Session) Ping() {
	s.loop.Post(func() {
		ch := s.currentChannel()
		if ch == nil {
			return
		}
		if err := ch.Send(event.PingCommand); err != nil {
			s.log.Warnf("[session] ping: %v", err)
		}
	})
}

// Ignored returns how many inbound events had no handler.
func (s *Session) Ignored() int {
	var n int
	if !s.loop.Do(func() { n = s.dispatcher.Ignored() }) {
		return s.dispatcher.Ignored()
	}
	return n
}

func (s *Session) onEvent(ev event.Event) {
	s.loop.Post(func() {
		s.dispatcher.Dispatch(ev)
	})
}

func (s *Session) onChannelState(state domain.ConnectionState) {
	// Stop closes the channel, possibly from the loop itself; the exit hook
	// publishes the final state.
	if s.isStopped() {
		return
	}
	s.loop.Post(func() {
		s.view.SetConnection(state, connectionText(state))
	})
}

func (s *Session) onICEState(state string) {
	if s.isStopped() {
		return
	}
	s.loop.Post(func() {
		s.view.SetICEState(state)
		if state == "failed" || state == "disconnected" {
			s.view.SetConnection(domain.ConnError, textICEFailed)
			s.activity.Add(domain.LogError, "ICE connection "+state, nil)
		}
	})
}

// fail shows err on the connection indicator.
func (s *Session) fail(text string, err error) {
	s.log.Errorf("[session] start: %v", err)
	s.mu.Lock()
	if !s.stopped {
		s.failure = text
	}
	s.mu.Unlock()
	s.loop.Do(func() {
		s.view.SetConnection(domain.ConnError, text)
		s.activity.Add(domain.LogError, err.Error(), nil)
	})
}

// register stores an acquired resource unless the session was stopped.
func (s *Session) register(set func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	set()
	return true
}

func (s *Session) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) currentChannel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// reset returns the page to its disconnected state, or to the error of a
// failed Start. It runs on the loop goroutine when the loop exits.
func (s *Session) reset() {
	s.renderer.Reset()
	if s.document != nil {
		s.document.Reset()
	}
	s.view.SetICEState(iceIdle)

	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()
	if failure != "" {
		// A failed start stays visible until the next session.
		s.view.SetConnection(domain.ConnError, failure)
		return
	}
	s.view.SetConnection(domain.ConnDisconnected, connectionText(domain.ConnDisconnected))
}

func connectionText(state domain.ConnectionState) string {
	switch state {
	case domain.ConnConnecting:
		return "Connecting..."
	case domain.ConnConnected:
		return "Connected"
	case domain.ConnError:
		return "Connection error"
	default:
		return "Disconnected"
	}
}
