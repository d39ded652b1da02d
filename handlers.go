package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/edgepurge/akamai-bridge/internal/agent"
	"github.com/edgepurge/akamai-bridge/internal/audit"
	"github.com/edgepurge/akamai-bridge/internal/replication"
	"github.com/edgepurge/akamai-bridge/internal/resolver"
	"github.com/rs/zerolog/log"
)

// HTTPStatuser provides HTTP status information for errors
type HTTPStatuser interface {
	Status() (int, string)
}

// purgeRequest is the inbound activation notification. A single change may
// be supplied inline, or several via the changes list.
type purgeRequest struct {
	Path      string                   `json:"path"`
	IsPage    bool                     `json:"isPage"`
	VanityURL string                   `json:"vanityUrl"`
	Changes   []resolver.ContentChange `json:"changes"`
}

func (p purgeRequest) contentChanges() []resolver.ContentChange {
	changes := make([]resolver.ContentChange, 0, len(p.Changes)+1)
	if p.Path != "" {
		changes = append(changes, resolver.ContentChange{
			Path:      p.Path,
			IsPage:    p.IsPage,
			VanityURL: p.VanityURL,
		})
	}
	return append(changes, p.Changes...)
}

// deliveryResponse reports the classified outcome of a delivery attempt.
type deliveryResponse struct {
	Agent     string   `json:"agent"`
	Action    string   `json:"action"`
	Targets   []string `json:"targets,omitempty"`
	OK        bool     `json:"ok"`
	Retryable bool     `json:"retryable"`
	Message   string   `json:"message,omitempty"`
}

func handlePostPurge(agents *agent.Store, builder replication.ContentBuilder, registry *replication.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		ctx := r.Context()
		entry := audit.Log(ctx)

		a, err := agents.Get(r.PathValue("agent"))
		if err != nil {
			status, message := errorStatus(err)
			log.Info().Msgf("agent lookup failed: %v", err)
			writeJSONError(w, status, message)
			return
		}
		entry.Agent = a.Name
		entry.Action = string(replication.ActionActivate)

		var req purgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Info().Msgf("invalid purge request body: %v", err)
			requestError(w, http.StatusBadRequest)
			return
		}

		changes := req.contentChanges()
		if len(changes) == 0 {
			log.Info().Msg("purge request specifies no content changes")
			requestError(w, http.StatusBadRequest)
			return
		}

		targets := builder.Build(ctx, changes)
		entry.Targets = targets

		tx := replication.Transaction{
			Action: replication.Action{
				Type: replication.ActionActivate,
				Path: changes[0].Path,
			},
			Content: targets,
		}

		deliver(w, r, a, registry, tx)
	})
}

func handlePostAgentTest(agents *agent.Store, registry *replication.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		entry := audit.Log(r.Context())

		a, err := agents.Get(r.PathValue("agent"))
		if err != nil {
			status, message := errorStatus(err)
			log.Info().Msgf("agent lookup failed: %v", err)
			writeJSONError(w, status, message)
			return
		}
		entry.Agent = a.Name
		entry.Action = string(replication.ActionTest)

		tx := replication.Transaction{
			Action: replication.Action{Type: replication.ActionTest},
		}

		deliver(w, r, a, registry, tx)
	})
}

// deliver resolves the transport handler, performs the single delivery
// attempt, and writes the classified outcome. Failed deliveries are reported
// as 502: the bridge accepted the request but the purge API did not.
func deliver(w http.ResponseWriter, r *http.Request, a agent.Agent, registry *replication.Registry, tx replication.Transaction) {
	entry := audit.Log(r.Context())

	handler, err := registry.HandlerFor(a)
	if err != nil {
		status, message := errorStatus(err)
		log.Info().Msgf("no transport handler: %v", err)
		writeJSONError(w, status, message)
		return
	}

	result, err := handler.Deliver(r.Context(), a, tx)
	if err != nil {
		status, message := errorStatus(err)
		log.Info().Msgf("delivery not attempted: %v", err)
		writeJSONError(w, status, message)
		return
	}

	entry.Outcome = result.Message
	if !result.OK {
		entry.Error = result.Message
	}

	response := deliveryResponse{
		Agent:     a.Name,
		Action:    string(tx.Action.Type),
		Targets:   tx.Content,
		OK:        result.OK,
		Retryable: result.Retryable,
		Message:   result.Message,
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Info().Msgf("failed to write response: %v", err)
	}
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONError writes a JSON error response with the given status code and message.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// At this point the status code has been written, so we can only log
		log.Info().Msgf("failed to write JSON error response: %v", err)
	}
}

// errorStatus extracts HTTP status code and message from an error.
// Returns (StatusInternalServerError, StatusText) for errors that don't implement HTTPStatuser.
func errorStatus(err error) (int, string) {
	var statuser HTTPStatuser
	if errors.As(err, &statuser) {
		return statuser.Status()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func requestError(w http.ResponseWriter, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5kb max: after this we'll assume the client is broken or malicious
		// and close the connection
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
