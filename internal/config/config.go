package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"ekyc_capture/native/internal/domain"
)

const (
	notifyPath        = "/webrtc/ws/notify"
	documentOfferPath = "/webrtc/offer"
	livenessOfferPath = "/webrtc/offer/face"
)

// Config holds the application configuration.
type Config struct {
	BackendHTTP string      `validate:"required,url"`
	BackendWS   string      `validate:"required,url"`
	Flow        domain.Flow `validate:"oneof=document liveness"`

	CameraFile string
	CameraLoop bool

	DisplayWidth  int `validate:"gt=0"`
	DisplayHeight int `validate:"gt=0"`
	FPS           int `validate:"min=1,max=240"`
	STUN          string

	LogLevel string `validate:"oneof=trace debug info warn warning error"`
	LogFile  string

	RedisAddress  string
	RedisPassword string
	RedisDB       int           `validate:"min=0"`
	ResultTTL     time.Duration `validate:"gt=0"`
	ClearResult   bool
}

// Load reads configuration from a .env file (if present), environment
// variables and finally the command line. Flags take precedence over the
// environment, which takes precedence over .env values.
func Load(args []string) (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	cfg := &Config{
		BackendHTTP:   getEnv("EKYC_BACKEND_HTTP", "http://localhost:8000"),
		BackendWS:     getEnv("EKYC_BACKEND_WS", "ws://localhost:8000"),
		Flow:          domain.Flow(getEnv("EKYC_FLOW", string(domain.FlowDocument))),
		CameraFile:    getEnv("EKYC_CAMERA_FILE", ""),
		STUN:          getEnv("EKYC_STUN", "stun:stun.l.google.com:19302"),
		LogLevel:      getEnv("EKYC_LOG_LEVEL", "info"),
		LogFile:       getEnv("EKYC_LOG_FILE", ""),
		RedisAddress:  getEnv("EKYC_REDIS_ADDRESS", ""),
		RedisPassword: getEnv("EKYC_REDIS_PASSWORD", ""),
	}

	var err error
	if cfg.CameraLoop, err = getBool("EKYC_CAMERA_LOOP", true); err != nil {
		return nil, err
	}
	if cfg.DisplayWidth, err = getInt("EKYC_DISPLAY_WIDTH", 640); err != nil {
		return nil, err
	}
	if cfg.DisplayHeight, err = getInt("EKYC_DISPLAY_HEIGHT", 480); err != nil {
		return nil, err
	}
	if cfg.FPS, err = getInt("EKYC_FPS", 60); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("EKYC_REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ResultTTL, err = getDuration("EKYC_RESULT_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("ekyc-capture", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	flow := fs.String("flow", string(c.Flow), "")
	fs.StringVar(&c.BackendHTTP, "http", c.BackendHTTP, "")
	fs.StringVar(&c.BackendWS, "ws", c.BackendWS, "")
	fs.StringVar(&c.CameraFile, "camera", c.CameraFile, "")
	fs.BoolVar(&c.CameraLoop, "loop", c.CameraLoop, "")
	fs.IntVar(&c.FPS, "fps", c.FPS, "")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "")
	fs.StringVar(&c.RedisAddress, "redis", c.RedisAddress, "")
	fs.BoolVar(&c.ClearResult, "clear", c.ClearResult, "")
	debug := fs.Bool("debug", false, "")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	c.Flow = domain.Flow(strings.ToLower(*flow))
	if *debug {
		c.LogLevel = "debug"
	}
	return nil
}

// NotifyURL is the signaling channel endpoint.
func (c *Config) NotifyURL() string {
	return strings.TrimRight(c.BackendWS, "/") + notifyPath
}

// OfferEndpoint is the offer/answer endpoint for the configured flow.
func (c *Config) OfferEndpoint() string {
	if c.Flow == domain.FlowLiveness {
		return livenessOfferPath
	}
	return documentOfferPath
}

// FrameInterval is the display refresh period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
