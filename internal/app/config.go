package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to the environment variable of every Config field.
const EnvPrefix = "COOKGRAPH_"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath string `env:"SCENE"` // hcl files
	Frames    string `env:"FRAMES" envDefault:"1"`

	LogFormat       string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	HealthcheckPort int    `env:"HEALTHCHECK_PORT"`

	LiveLinkURL     string        `env:"LIVE_LINK_URL"`
	LiveLinkTimeout time.Duration `env:"LIVE_LINK_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv reads a Config from environ, or from the process environment
// when environ is nil. Unset variables keep their defaults.
func ConfigFromEnv(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenePath == "" {
		return nil, errors.New("ScenePath is a required configuration field and cannot be empty")
	}
	if cfg.Frames == "" {
		cfg.Frames = "1"
	}
	if _, err := ParseFrames(cfg.Frames); err != nil {
		return nil, err
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// FrameRange is an inclusive range of frames.
type FrameRange struct {
	Start, End int
}

// Len is the number of frames in the range.
func (r FrameRange) Len() int { return r.End - r.Start + 1 }

// ParseFrames parses "N" or "START:END".
func ParseFrames(s string) (FrameRange, error) {
	startStr, endStr, isRange := strings.Cut(s, ":")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return FrameRange{}, fmt.Errorf("invalid frame range %q: %w", s, err)
	}
	if !isRange {
		return FrameRange{Start: start, End: start}, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return FrameRange{}, fmt.Errorf("invalid frame range %q: %w", s, err)
	}
	if end < start {
		return FrameRange{}, fmt.Errorf("invalid frame range %q: end is before start", s)
	}
	return FrameRange{Start: start, End: end}, nil
}
