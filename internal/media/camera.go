// Package media provides the local video source the session streams.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
)

const defaultFrameInterval = time.Second / 30

// FileCamera plays an IVF recording as if it were a live camera.
type FileCamera struct {
	Path string
	// Loop restarts the recording at end of file.
	Loop bool
	Log  logrus.FieldLogger
}

// NewFileCamera creates a camera reading path.
func NewFileCamera(path string, loop bool, log logrus.FieldLogger) *FileCamera {
	return &FileCamera{Path: path, Loop: loop, Log: log}
}

// Open validates the recording, creates the outbound track and starts
// pumping frames into it. Any failure to read the recording is reported as
// domain.ErrCameraUnavailable.
func (c *FileCamera) Open(ctx context.Context) (domain.Stream, error) {
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	if c.Path == "" {
		return nil, fmt.Errorf("%w: no camera source configured", domain.ErrCameraUnavailable)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCameraUnavailable, c.Path, err)
	}

	mime, err := mimeType(header.FourCC)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrCameraUnavailable, err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "video", "ekyc-capture")
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: create track: %v", domain.ErrCameraUnavailable, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		file:     f,
		reader:   reader,
		track:    track,
		width:    int(header.Width),
		height:   int(header.Height),
		interval: frameInterval(header),
		loop:     c.Loop,
		log:      log,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	log.Infof("[media] opened %s: %s %dx%d, %s per frame", c.Path, header.FourCC, s.width, s.height, s.interval)

	go s.pump(ctx)

	return s, nil
}

// Stream is an open file-backed video stream.
type Stream struct {
	file     *os.File
	reader   *ivfreader.IVFReader
	track    *webrtc.TrackLocalStaticSample
	width    int
	height   int
	interval time.Duration
	loop     bool
	log      logrus.FieldLogger

	frames   atomic.Int64
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// Tracks returns the local tracks to attach to a peer connection.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track}
}

// FrameSize returns the recording's frame dimensions.
func (s *Stream) FrameSize() (width, height int) {
	return s.width, s.height
}

// Frames returns how many frames have been written to the track.
func (s *Stream) Frames() int64 {
	return s.frames.Load()
}

// Done is closed once the pump has stopped.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stop halts the pump and releases the file. It is safe to call more than
// once.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		s.file.Close()
		s.log.Infof("[media] stopped after %d frames", s.Frames())
	})
}

func (s *Stream) pump(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, _, err := s.reader.ParseNextFrame()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if !s.loop {
				s.log.Infof("[media] end of recording")
				return
			}
			if err := s.rewind(); err != nil {
				s.log.Warnf("[media] rewind: %v", err)
				return
			}
			continue
		}
		if err != nil {
			s.log.Warnf("[media] read frame: %v", err)
			return
		}

		if err := s.track.WriteSample(pionmedia.Sample{Data: frame, Duration: s.interval}); err != nil {
			s.log.Warnf("[media] write sample: %v", err)
			return
		}
		s.frames.Add(1)
	}
}

func (s *Stream) rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	reader, _, err := ivfreader.NewWith(s.file)
	if err != nil {
		return fmt.Errorf("reopen: %w", err)
	}
	s.reader = reader
	return nil
}

func mimeType(fourCC string) (string, error) {
	switch fourCC {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	default:
		return "", fmt.Errorf("unsupported codec %q", fourCC)
	}
}

func frameInterval(h *ivfreader.IVFFileHeader) time.Duration {
	if h.TimebaseDenominator == 0 || h.TimebaseNumerator == 0 {
		return defaultFrameInterval
	}
	d := time.Duration(float64(time.Second) * float64(h.TimebaseNumerator) / float64(h.TimebaseDenominator))
	if d <= 0 {
		return defaultFrameInterval
	}
	return d
}
