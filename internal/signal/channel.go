// Package signal implements the WebSocket channel the backend pushes
// detection events over.
package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
)

const (
	defaultPingInterval = 20 * time.Second
	writeWait           = 5 * time.Second
)

// Options configures a Channel.
type Options struct {
	Log logrus.FieldLogger
	// OnState receives every connection state change, from the dialing
	// goroutine and later from the read goroutine.
	OnState func(state domain.ConnectionState)
	// PingInterval is the keepalive period. Zero uses the default, a
	// negative value disables keepalive pings.
	PingInterval time.Duration
	Dialer       *websocket.Dialer
}

// Channel is an open signaling connection.
type Channel struct {
	conn    *websocket.Conn
	onEvent func(event.Event)
	onState func(domain.ConnectionState)
	log     logrus.FieldLogger

	mu        sync.Mutex
	stateMu   sync.Mutex
	state     domain.ConnectionState
	malformed atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

// Dial opens the channel at url and returns once it is open. Inbound events
// are decoded and passed to onEvent in arrival order from a single goroutine.
func Dial(ctx context.Context, url string, onEvent func(event.Event), opts Options) (*Channel, error) {
	c := &Channel{
		onEvent: onEvent,
		onState: opts.OnState,
		log:     opts.Log,
		state:   domain.ConnDisconnected,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	c.setState(domain.ConnConnecting)
	c.log.Infof("[signal] connecting to %s", url)

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		c.setState(domain.ConnError)
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrSignaling, url, err)
	}
	c.conn = conn
	c.setState(domain.ConnConnected)
	c.log.Infof("[signal] connected")

	go c.readLoop()

	interval := opts.PingInterval
	if interval == 0 {
		interval = defaultPingInterval
	}
	if interval > 0 {
		go c.pingLoop(interval)
	}

	return c, nil
}

// Send marshals v and writes it as one text message.
func (c *Channel) Send(v any) error {
	data, err := event.Encode(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.closed:
		return fmt.Errorf("%w: channel closed", domain.ErrSignaling)
	default:
	}

	c.log.Debugf("[signal] >>> %s", string(data))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write: %v", domain.ErrSignaling, err)
	}
	return nil
}

// State returns the current connection state.
func (c *Channel) State() domain.ConnectionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Malformed returns how many inbound payloads could not be decoded.
func (c *Channel) Malformed() int64 {
	return c.malformed.Load()
}

// Done is closed when the read loop has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close shuts down the connection. It is safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.mu.Unlock()

		c.conn.Close()
		c.setState(domain.ConnDisconnected)
		c.log.Infof("[signal] closed")
	})
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Channel) setState(s domain.ConnectionState) {
	c.stateMu.Lock()
	if c.state == s {
		c.stateMu.Unlock()
		return
	}
	c.state = s
	c.stateMu.Unlock()

	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Channel) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Infof("[signal] closed by server")
				c.setState(domain.ConnDisconnected)
			} else {
				c.log.Warnf("[signal] read error: %v", err)
				c.setState(domain.ConnError)
			}
			return
		}

		c.log.Debugf("[signal] <<< %s", string(data))

		ev, err := event.Decode(data)
		if err != nil {
			n := c.malformed.Add(1)
			if errors.Is(err, domain.ErrMalformedMessage) {
				c.log.Warnf("[signal] dropping message (%d so far): %v", n, err)
			} else {
				c.log.Warnf("[signal] decode error: %v", err)
			}
			continue
		}

		if c.onEvent != nil {
			c.onEvent(ev)
		}
	}
}

func (c *Channel) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				if !c.isClosed() {
					c.log.Warnf("[signal] ping error: %v", err)
				}
				return
			}
		}
	}
}
