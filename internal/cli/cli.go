package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/cookgraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the COOKGRAPH_*
// environment variables of the process.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return ParseWithEnv(args, nil, output)
}

// ParseWithEnv processes command-line arguments. Environment values from
// environ (the process environment when nil) provide the flag defaults, so a
// flag always wins over a variable. It returns a populated Config, a boolean
// indicating if the program should exit cleanly, or an ExitError.
func ParseWithEnv(args []string, environ map[string]string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	defaults, err := app.ConfigFromEnv(environ)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("cookgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cookgraph - cooks a reactive node scene over a range of frames.

Usage:
  cookgraph [options] [SCENE_PATH]

Arguments:
  SCENE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Every option can also be set with an environment variable named after it,
e.g. COOKGRAPH_LOG_LEVEL=debug or COOKGRAPH_FRAMES=1:240.

Options:
`)
		flagSet.PrintDefaults()
	}

	sceneFlag := flagSet.String("scene", defaults.ScenePath, "Path to the scene file or directory.")
	sFlag := flagSet.String("s", "", "Path to the scene file or directory (shorthand).")
	framesFlag := flagSet.String("frames", defaults.Frames, "Frames to cook: a single frame 'N' or an inclusive range 'START:END'.")
	healthPortFlag := flagSet.Int("healthcheck-port", defaults.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	liveLinkFlag := flagSet.String("live-link", defaults.LiveLinkURL, "socket.io URL to stream cook events to, e.g. http://localhost:3000/socket.io/. Empty is disabled.")
	liveLinkTimeoutFlag := flagSet.Duration("live-link-timeout", defaults.LiveLinkTimeout, "How long to wait for the live link connection.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *sceneFlag
	if *sFlag != "" {
		path = *sFlag
	}
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Scene path determined.", "path", path)

	if path == "" {
		slog.Debug("No scene path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ScenePath:       path,
		Frames:          *framesFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		LiveLinkURL:     *liveLinkFlag,
		LiveLinkTimeout: *liveLinkTimeoutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
