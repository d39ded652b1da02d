// Package audit emits one structured log entry per purge delivery request,
// written even when the handler panics. Handlers enrich the entry with the
// agent and target details as they become known.
package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the zerolog level audit entries are written at. Audit entries are
// operational records, not diagnostics, so they sit above Info.
const Level = zerolog.WarnLevel

// Entry is the audit record for one delivery request. Fields are exported so
// handlers can fill them in as the delivery progresses.
type Entry struct {
	Start     time.Time
	Method    string
	Path      string
	UserAgent string
	SourceIP  string

	Agent   string
	Action  string
	Targets []string
	Outcome string

	Status int
	Error  string
}

type contextKey struct{}

// Context returns a context carrying an audit entry, creating one if needed.
func Context(ctx context.Context) (context.Context, *Entry) {
	if entry, ok := ctx.Value(contextKey{}).(*Entry); ok {
		return ctx, entry
	}

	entry := &Entry{Start: time.Now()}
	return context.WithValue(ctx, contextKey{}, entry), entry
}

// Log returns the audit entry for the current request. A detached entry is
// returned when the middleware is not installed, so callers can enrich
// unconditionally.
func Log(ctx context.Context) *Entry {
	if entry, ok := ctx.Value(contextKey{}).(*Entry); ok {
		return entry
	}
	return &Entry{Start: time.Now()}
}

// Middleware captures request metadata and writes the audit entry when the
// request completes. The entry is written even if the handler panics; the
// panic is then re-raised.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())

			entry.Method = r.Method
			entry.Path = r.URL.Path
			entry.UserAgent = r.UserAgent()
			entry.SourceIP = r.RemoteAddr

			capture := &statusCapture{ResponseWriter: w}

			defer func() {
				if recovered := recover(); recovered != nil {
					entry.Status = http.StatusInternalServerError
					if entry.Error == "" {
						entry.Error = "panic during request handling"
					}
					entry.write(ctx)
					panic(recovered)
				}

				entry.Status = capture.status()
				entry.write(ctx)
			}()

			next.ServeHTTP(capture, r.WithContext(ctx))
		})
	}
}

func (e *Entry) write(ctx context.Context) {
	ev := log.Ctx(ctx).WithLevel(Level).
		Str("method", e.Method).
		Str("path", e.Path).
		Str("userAgent", e.UserAgent).
		Str("sourceIP", e.SourceIP).
		Int("status", e.Status).
		Dur("elapsed", time.Since(e.Start))

	if e.Agent != "" {
		ev = ev.Str("agent", e.Agent)
	}
	if e.Action != "" {
		ev = ev.Str("action", e.Action)
	}
	if len(e.Targets) > 0 {
		ev = ev.Strs("targets", e.Targets)
	}
	if e.Outcome != "" {
		ev = ev.Str("outcome", e.Outcome)
	}
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}

	ev.Msg("delivery audit")
}

type statusCapture struct {
	http.ResponseWriter
	wroteHeader bool
	code        int
}

func (s *statusCapture) WriteHeader(code int) {
	if !s.wroteHeader {
		s.wroteHeader = true
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusCapture) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusCapture) status() int {
	if !s.wroteHeader {
		return http.StatusOK
	}
	return s.code
}
