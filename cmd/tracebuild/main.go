// tracebuild instruments builds that run as sequences of independent,
// short-lived processes (CI jobs, shell steps) with distributed-tracing
// spans and aggregate metrics.
//
// No process lives for the duration of the build, so spans are reconstructed
// after the fact from identifiers and timestamps the calling build script
// threads across process boundaries:
//
//	BUILD=$(tracebuild id)
//	START=$(tracebuild now)
//	tracebuild cmd --build "$BUILD" -- make test
//	tracebuild build --id "$BUILD" --start-time "$START" --status success
//
// Exporters are selected via OTEL_TRACES_EXPORTER (otlp, jaeger, none) and
// OTEL_METRICS_EXPORTER (otlp, prometheus, none). Telemetry never masks the
// wrapped command's outcome: `cmd` always exits with the child's real exit
// code and reports export problems on stderr only.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tracebuild/tracebuild/internal/config"
	"github.com/tracebuild/tracebuild/internal/ident"
	"github.com/tracebuild/tracebuild/internal/runner"
	"github.com/tracebuild/tracebuild/internal/timestamp"
)

// version is set at build time via -ldflags.
var version = "dev"

// Exit statuses for the tool's own failures. `cmd` instead mirrors the
// wrapped command's exit code.
const (
	exitUsage  = 2
	exitConfig = 78 // EX_CONFIG
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env if present (non-fatal; CI environments won't have one).
	_ = godotenv.Load()

	// Diagnostics go to stderr: stdout carries the machine-readable output
	// of `id` and `now` that build scripts capture.
	level := slog.LevelInfo
	if os.Getenv("TRACEBUILD_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	app := newApp(logger)
	if err := app.Run(context.Background(), os.Args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			// The command finished and already produced its output; only
			// the status remains.
			return exitErr.code
		}

		logger.Error("fatal error", "error", err)
		switch {
		case errors.Is(err, ident.ErrInvalid),
			errors.Is(err, timestamp.ErrInvalid),
			errors.Is(err, errUsage):
			return exitUsage
		case errors.Is(err, config.ErrUnknownExporter):
			return exitConfig
		}
		var spawnErr *runner.SpawnError
		if errors.As(err, &spawnErr) {
			return runner.ExitOSErr
		}
		return 1
	}
	return 0
}

// exitError carries a non-zero exit status for commands whose output is
// already complete, most importantly `cmd` mirroring its child.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }
