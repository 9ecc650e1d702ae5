// Package observability boots the process-wide logging stack: plain slog
// handlers for local use, or export through the OpenTelemetry log bridge.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/term"
)

// Supported log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatOTLP = "otlp"
)

// scopeName identifies this instrumentation in exported log records.
const scopeName = "turntable"

// DefaultFormat picks text for interactive terminals and json otherwise.
func DefaultFormat() string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return FormatText
	}
	return FormatJSON
}

// Instrument installs the process-wide slog default for the given level and
// format. An empty format means text.
func Instrument(level slog.Level, format string) error {
	switch format {
	case "", FormatText:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case FormatJSON:
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	case FormatOTLP:
		handler, err := newOTLPHandler(level)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(handler))
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}
	return nil
}

// newOTLPHandler builds a slog handler backed by an OpenTelemetry logger
// provider, with records below level filtered out before batching.
func newOTLPHandler(level slog.Level) (slog.Handler, error) {
	exporter, err := newLogExporter(context.Background())
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(provider)

	// Export failures surface through the global error handler. Route them
	// straight to stderr: sending them through the bridge would loop.
	fallback := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		fallback.Warn("telemetry export error", "error", err)
	}))

	return otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(provider)), nil
}

// newLogExporter picks the exporter from the standard OTEL_* environment:
// OTEL_EXPORTER_OTLP_PROTOCOL selects grpc over the default http transport.
// Without any OTLP endpoint configured, records go to stdout so they stay
// visible instead of timing out against a collector that is not there.
func newLogExporter(ctx context.Context) (sdklog.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" && os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT") == "" {
		return stdoutlog.New()
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		return otlploggrpc.New(ctx)
	}
	return otlploghttp.New(ctx)
}

// severity maps a slog level onto the minimum-severity filter.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
