package replication

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/edgepurge/akamai-bridge/internal/agent"
)

// Registry maps transport URI schemes to handlers. Handlers are registered
// explicitly at startup; there is no reflective discovery. Registration
// happens before serving starts, so reads are not synchronized.
type Registry struct {
	handlers map[string]TransportHandler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: map[string]TransportHandler{},
	}
}

// Register binds a handler to a transport URI scheme, e.g. "akamai".
func (r *Registry) Register(scheme string, h TransportHandler) {
	r.handlers[strings.ToLower(scheme)] = h
}

// NoHandlerError indicates no registered handler serves an agent's
// transport URI.
type NoHandlerError struct {
	Agent  string
	Scheme string
}

func (e NoHandlerError) Error() string {
	return fmt.Sprintf("no transport handler for agent %q (scheme %q)", e.Agent, e.Scheme)
}

// Status implements the HTTP status mapping used by the request handlers.
func (e NoHandlerError) Status() (int, string) {
	return http.StatusConflict, e.Error()
}

// HandlerFor resolves the handler serving the agent's transport URI.
func (r *Registry) HandlerFor(a agent.Agent) (TransportHandler, error) {
	h, found := r.handlers[a.Scheme()]
	if !found || !h.CanHandle(a) {
		return nil, NoHandlerError{Agent: a.Name, Scheme: a.Scheme()}
	}

	return h, nil
}
