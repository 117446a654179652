package gateway

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LoggingTransport logs every request and its outcome.
type LoggingTransport struct {
	next http.RoundTripper
	log  zerolog.Logger
}

// NewLoggingTransport wraps next, defaulting to http.DefaultTransport.
func NewLoggingTransport(next http.RoundTripper, log zerolog.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingTransport{next: next, log: log}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ev := t.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String())
	if ref := req.Header.Get("Referer"); ref != "" {
		ev = ev.Str("referer", ref)
	}
	if xrw := req.Header.Get("X-Requested-With"); xrw != "" {
		ev = ev.Str("x_requested_with", xrw)
	}

	resp, err := t.next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		t.log.Debug().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("elapsed", elapsed).
			Msg("request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("request")
	return resp, nil
}
