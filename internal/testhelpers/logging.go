package testhelpers

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// SetupLogger routes the global logger through the test's log output for the
// duration of the test.
func SetupLogger(t *testing.T) {
	t.Helper()

	original := log.Logger
	log.Logger = zerolog.New(testWriter{t: t}).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	t.Cleanup(func() {
		log.Logger = original
		zerolog.DefaultContextLogger = &original
	})
}
