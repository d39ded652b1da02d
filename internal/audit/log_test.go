package audit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edgepurge/akamai-bridge/internal/audit"
	"github.com/edgepurge/akamai-bridge/internal/testhelpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func requestSetup() (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(http.MethodPost, "/purge/production", nil), httptest.NewRecorder()
}

func withLogHook(ctx context.Context, hook zerolog.Hook) context.Context {
	logger := log.Logger.Hook(hook)
	return logger.WithContext(ctx)
}

func TestMiddleware(t *testing.T) {
	t.Run("captures request info and configures context", func(t *testing.T) {
		testhelpers.SetupLogger(t)

		testAgent := "replication-engine/2.1"
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := audit.Log(r.Context())
			assert.Equal(t, testAgent, entry.UserAgent)
			assert.Equal(t, "/purge/production", entry.Path)

			w.WriteHeader(http.StatusTeapot)
		})

		middleware := audit.Middleware()(handler)

		req, w := requestSetup()
		req.Header.Set("User-Agent", testAgent)

		middleware.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Result().StatusCode)
	})

	t.Run("captures status code", func(t *testing.T) {
		testhelpers.SetupLogger(t)

		var capturedContext context.Context
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedContext = r.Context()
			w.WriteHeader(http.StatusBadGateway)
		})

		req, w := requestSetup()

		middleware := audit.Middleware()(handler)
		middleware.ServeHTTP(w, req)

		entry := audit.Log(capturedContext)

		assert.Equal(t, http.StatusBadGateway, w.Result().StatusCode)
		assert.Equal(t, http.StatusBadGateway, entry.Status)
	})

	t.Run("implicit 200 when handler writes body only", func(t *testing.T) {
		testhelpers.SetupLogger(t)

		var capturedContext context.Context
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedContext = r.Context()
			w.Write([]byte("ok"))
		})

		req, w := requestSetup()

		middleware := audit.Middleware()(handler)
		middleware.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, audit.Log(capturedContext).Status)
	})

	t.Run("log written", func(t *testing.T) {
		testhelpers.SetupLogger(t)

		auditWritten := false

		ctx := withLogHook(
			context.Background(),
			zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
				if level == audit.Level {
					auditWritten = true
				}
			}),
		)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		middleware := audit.Middleware()(handler)

		req, w := requestSetup()
		middleware.ServeHTTP(w, req.WithContext(ctx))

		assert.True(t, auditWritten, "audit log entry should be written")
	})

	t.Run("log written on panic", func(t *testing.T) {
		testhelpers.SetupLogger(t)

		auditWritten := false

		ctx := withLogHook(
			context.Background(),
			zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
				if level == audit.Level {
					auditWritten = true
				}
			}),
		)

		var entry *audit.Entry

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry = audit.Log(r.Context())
			entry.Error = "failure pre-panic"
			panic("delivery exploded")
		})

		middleware := audit.Middleware()(handler)

		req, w := requestSetup()

		assert.PanicsWithValue(t, "delivery exploded", func() {
			middleware.ServeHTTP(w, req.WithContext(ctx))
		})

		assert.True(t, auditWritten, "audit log entry should be written on panic")
		assert.Equal(t, "failure pre-panic", entry.Error)
		assert.Equal(t, http.StatusInternalServerError, entry.Status)
	})
}

func TestLog_DetachedEntry(t *testing.T) {
	entry := audit.Log(context.Background())
	assert.NotNil(t, entry)

	// enrichment of a detached entry must not panic
	entry.Agent = "production"
}
