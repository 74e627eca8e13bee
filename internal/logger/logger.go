// Package logger builds the zap logger shared by every binary and the
// request logging middleware for gin and gRPC.
package logger

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger for service. format is json, console or auto; auto
// picks console when stdout is a terminal.
func New(service, env, level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = encoding(format, isatty.IsTerminal(os.Stdout.Fd()))

	cfg.InitialFields = map[string]any{
		"service": service,
		"env":     env,
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func encoding(format string, tty bool) string {
	switch format {
	case "json":
		return "json"
	case "console":
		return "console"
	default:
		if tty {
			return "console"
		}
		return "json"
	}
}

// Must is New for main packages; it exits when the logger cannot be built.
func Must(service, env, level, format string) *zap.Logger {
	log, err := New(service, env, level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return log
}
