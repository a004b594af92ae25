// Package logging provides slog setup and structured logging of outbound API requests.
package logging

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// New creates a logger writing to w. format is "json" or "text".
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RoundTripper returns an http.RoundTripper that logs every request made through next.
// Each entry includes:
// - request_id: the X-Request-ID header set by the API client
// - method: HTTP method
// - host and path of the request
// - status: response status code (0 on transport failure)
// - bytes: response Content-Length as reported by the server
// - duration: round-trip time
//
// Successful exchanges are logged at debug, HTTP errors at info and
// transport failures at warn.
func RoundTripper(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()

		resp, err := next.RoundTrip(req)

		attrs := []any{
			"request_id", req.Header.Get("X-Request-ID"),
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"duration", time.Since(start).String(),
		}

		if err != nil {
			logger.Warn("request", append(attrs, "status", 0, "error", err)...)
			return nil, err
		}

		attrs = append(attrs, "status", resp.StatusCode, "bytes", resp.ContentLength)
		if resp.StatusCode >= 400 {
			logger.Info("request", attrs...)
		} else {
			logger.Debug("request", attrs...)
		}

		return resp, nil
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
