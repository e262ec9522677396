// Package webrtc wraps the pion peer connection that carries the local
// camera to the backend.
package webrtc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	pion "github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
)

// DefaultSTUN is the public STUN resolver used when none is configured.
const DefaultSTUN = "stun:stun.l.google.com:19302"

// ErrNoTracks is returned when a stream exposes nothing to send.
var ErrNoTracks = errors.New("stream has no local tracks")

// trackSource is implemented by streams that can be sent over a peer.
type trackSource interface {
	Tracks() []pion.TrackLocal
}

// Peer wraps a Pion PeerConnection that sends local media.
type Peer struct {
	pc  *pion.PeerConnection
	log logrus.FieldLogger

	mu    sync.Mutex
	onICE func(state string)

	closeOnce sync.Once
}

// NewPeer creates a PeerConnection with the default codecs and a NACK
// responder for retransmission of the outbound video.
func NewPeer(iceURLs []string, log logrus.FieldLogger) (*Peer, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	i := &interceptor.Registry{}
	responderFactory, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	i.Add(responderFactory)

	api := pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
	)

	var servers []pion.ICEServer
	if len(iceURLs) > 0 {
		servers = append(servers, pion.ICEServer{URLs: iceURLs})
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers:   servers,
		BundlePolicy: pion.BundlePolicyMaxBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{pc: pc, log: log}

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		log.Infof("[webrtc] ICE connection state: %s", state.String())
		p.mu.Lock()
		fn := p.onICE
		p.mu.Unlock()
		if fn != nil {
			fn(state.String())
		}
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		log.Infof("[webrtc] peer connection state: %s", state.String())
	})

	return p, nil
}

// SetOnICEStateChange registers the ICE connection state observer. It is
// called from pion's goroutines.
func (p *Peer) SetOnICEStateChange(fn func(state string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onICE = fn
}

// AddStream attaches every local track of s to the connection.
func (p *Peer) AddStream(s domain.Stream) error {
	src, ok := s.(trackSource)
	if !ok {
		return ErrNoTracks
	}
	tracks := src.Tracks()
	if len(tracks) == 0 {
		return ErrNoTracks
	}

	for _, track := range tracks {
		sender, err := p.pc.AddTrack(track)
		if err != nil {
			return fmt.Errorf("add track %s: %w", track.ID(), err)
		}
		p.log.Infof("[webrtc] added %s track %s", track.Kind(), track.ID())

		// RTCP must be drained for the interceptors to see NACKs.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
	}
	return nil
}

// CreateOffer creates an SDP offer, sets it as the local description and
// waits for candidate gathering so the offer can be posted in one request.
func (p *Peer) CreateOffer() (domain.SDPPayload, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return domain.SDPPayload{}, fmt.Errorf("create offer: %w", err)
	}

	gathered := pion.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return domain.SDPPayload{}, fmt.Errorf("set local description: %w", err)
	}
	<-gathered

	local := p.pc.LocalDescription()
	if local == nil {
		return domain.SDPPayload{}, errors.New("local description missing after gathering")
	}

	p.log.Infof("[webrtc] local SDP offer set")
	return domain.SDPPayload{SDP: local.SDP, Type: local.Type.String()}, nil
}

// SetRemoteDescription applies the backend's SDP answer.
func (p *Peer) SetRemoteDescription(sdp domain.SDPPayload) error {
	answer := pion.SessionDescription{
		Type: pion.SDPTypeAnswer,
		SDP:  sdp.SDP,
	}

	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.log.Infof("[webrtc] remote SDP answer set")
	return nil
}

// Close shuts down the PeerConnection. It is safe to call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		if err := p.pc.Close(); err != nil {
			p.log.Warnf("[webrtc] close: %v", err)
		}
	})
}
