package testhelpers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockPurgeServer provides a configurable mock CCU purge API server for
// testing. It records the requests it receives so tests can assert on the
// wire format.
type MockPurgeServer struct {
	Server *httptest.Server

	TestStatus  int    // status returned for GET requests (200 if not set)
	PurgeStatus int    // status returned for POST requests (201 if not set)
	Body        string // response body

	RequestCount    int
	LastMethod      string
	LastAuthHeader  string
	LastContentType string
	LastBody        []byte
}

// SetupMockPurgeServer creates a mock purge API server that accepts test
// (GET) and purge (POST) submissions.
func SetupMockPurgeServer(t *testing.T) *MockPurgeServer {
	t.Helper()

	mock := &MockPurgeServer{
		TestStatus:  http.StatusOK,
		PurgeStatus: http.StatusCreated,
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.RequestCount++
		mock.LastMethod = r.Method
		mock.LastAuthHeader = r.Header.Get("Authorization")
		mock.LastContentType = r.Header.Get("Content-Type")

		body, _ := io.ReadAll(r.Body)
		mock.LastBody = body

		status := mock.TestStatus
		if r.Method == http.MethodPost {
			status = mock.PurgeStatus
		}

		w.WriteHeader(status)
		w.Write([]byte(mock.Body))
	}))

	t.Cleanup(mock.Server.Close)

	return mock
}

// URL returns the mock server's base URL.
func (m *MockPurgeServer) URL() string {
	return m.Server.URL
}
