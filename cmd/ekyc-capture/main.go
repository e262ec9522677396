package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/api"
	"ekyc_capture/native/internal/config"
	"ekyc_capture/native/internal/domain"
	"ekyc_capture/native/internal/event"
	"ekyc_capture/native/internal/logger"
	"ekyc_capture/native/internal/media"
	"ekyc_capture/native/internal/session"
	sigclient "ekyc_capture/native/internal/signal"
	"ekyc_capture/native/internal/store"
	"ekyc_capture/native/internal/terminal"
	"ekyc_capture/native/internal/webrtc"
)

const helpText = `ekyc-capture - Stream a camera to an eKYC backend and follow its detections

Usage:
  ekyc-capture [options]

The camera is an IVF (VP8/VP9/AV1) recording streamed over WebRTC. Detection,
OCR and liveness events from the backend are shown as they arrive.

While running, type a command and press enter:
  c  capture the detected document (document flow)
  p  ping the backend
  q  quit

Environment Variables:
  EKYC_BACKEND_HTTP    Backend HTTP base URL (default http://localhost:8000)
  EKYC_BACKEND_WS      Backend WebSocket base URL (default ws://localhost:8000)
  EKYC_FLOW            document or liveness (default document)
  EKYC_CAMERA_FILE     IVF recording used as the camera
  EKYC_CAMERA_LOOP     Restart the recording at end of file (default true)
  EKYC_DISPLAY_WIDTH   Overlay surface width (default 640)
  EKYC_DISPLAY_HEIGHT  Overlay surface height (default 480)
  EKYC_FPS             Display refresh rate (default 60)
  EKYC_STUN            STUN server (default stun:stun.l.google.com:19302)
  EKYC_LOG_LEVEL       trace, debug, info, warn or error (default info)
  EKYC_LOG_FILE        Also write logs to this file, rotated
  EKYC_REDIS_ADDRESS   Keep the document result in Redis instead of memory
  EKYC_REDIS_PASSWORD  Redis password
  EKYC_REDIS_DB        Redis database (default 0)
  EKYC_RESULT_TTL      How long a document result is kept (default 30m)

Examples:
  # Capture an identity card
  ekyc-capture -flow document -camera ktp.ivf

  # Liveness check, reusing the card read above
  ekyc-capture -flow liveness -camera face.ivf -redis localhost:6379

Options:
  -flow string       document or liveness
  -http string       backend HTTP base URL
  -ws string         backend WebSocket base URL
  -camera string     IVF recording used as the camera
  -loop              restart the recording at end of file
  -fps int           display refresh rate
  -log-level string  log level
  -log-file string   log file
  -redis string      Redis address
  -clear             drop any stored document result before starting
  -debug             shorthand for -log-level debug
  -h, --help         Show this help message
`

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		fmt.Print(helpText)
		os.Exit(0)
	}
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(2)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, log); err != nil {
		log.WithField("component", "main").Errorf("[main] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, quit context.CancelFunc, cfg *config.Config, log *logrus.Logger) error {
	mainLog := logger.Component(log, "main")

	results, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	if cfg.ClearResult {
		if err := results.Clear(ctx); err != nil {
			mainLog.Warnf("[main] clear stored result: %v", err)
		}
	}

	presenter := terminal.New(os.Stdout, cfg.DisplayWidth, cfg.DisplayHeight)
	pterm.Info.Println(fmt.Sprintf("eKYC capture: %s flow", cfg.Flow))
	pterm.Println()

	sess := session.New(session.Options{
		Flow:          cfg.Flow,
		NotifyURL:     cfg.NotifyURL(),
		OfferEndpoint: cfg.OfferEndpoint(),
		FrameInterval: cfg.FrameInterval(),
		Fields:        domain.KTPFields,
		Camera:        media.NewFileCamera(cfg.CameraFile, cfg.CameraLoop, logger.Component(log, "media")),
		NewPeer:       peerFactory(cfg, logger.Component(log, "webrtc")),
		Offers:        api.NewClient(cfg.BackendHTTP, nil, logger.Component(log, "api")),
		Dial:          dialer(logger.Component(log, "signal")),
		Presenter:     presenter,
		Store:         results,
		Log:           logger.Component(log, "session"),
	})
	mainLog.Infof("[main] session %s", sess.ID())

	go readCommands(ctx, sess, quit)

	if err := sess.Start(ctx); err != nil {
		sess.Stop()
		<-sess.Done()
		return fmt.Errorf("start session: %w", err)
	}

	<-ctx.Done()
	mainLog.Infof("[main] shutting down")

	sess.Stop()
	<-sess.Done()

	mainLog.Infof("[main] done")
	return nil
}

// resultStore is a domain.ResultStore that can also be cleared.
type resultStore interface {
	domain.ResultStore
	Clear(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (resultStore, func()) {
	if cfg.RedisAddress == "" {
		return store.NewMemory(cfg.ResultTTL), func() {}
	}
	r := store.NewRedis(ctx, store.RedisOptions{
		Address:  cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.ResultTTL,
	}, logger.Component(log, "store"))
	return r, func() { _ = r.Close() }
}

func peerFactory(cfg *config.Config, log logrus.FieldLogger) func() (domain.Peer, error) {
	return func() (domain.Peer, error) {
		var ice []string
		if cfg.STUN != "" {
			ice = []string{cfg.STUN}
		}
		p, err := webrtc.NewPeer(ice, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func dialer(log logrus.FieldLogger) session.DialFunc {
	return func(ctx context.Context, url string, onEvent func(event.Event), onState func(domain.ConnectionState)) (session.Channel, error) {
		ch, err := sigclient.Dial(ctx, url, onEvent, sigclient.Options{Log: log, OnState: onState})
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// readCommands maps stdin lines to session actions until stdin closes.
func readCommands(ctx context.Context, sess *session.Session, quit context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "c", "capture":
			sess.Capture()
		case "p", "ping":
			sess.Ping()
		case "q", "quit", "exit":
			quit()
			return
		case "":
		default:
			pterm.Warning.Println("unknown command (c, p or q)")
		}
	}
}
