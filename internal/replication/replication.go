// Package replication models the delivery of content activations to purge
// destinations: replication actions, the transport handler contract, and an
// explicit registry mapping transport URI schemes to handlers. The caller
// owns scheduling and retries; a handler performs at most one delivery
// attempt per call.
package replication

import (
	"context"
	"fmt"
	"net/http"

	"github.com/edgepurge/akamai-bridge/internal/agent"
	"github.com/edgepurge/akamai-bridge/internal/akamai"
)

// ActionType is the kind of replication action being delivered.
type ActionType string

const (
	// ActionTest verifies connectivity and credentials without purging.
	ActionTest ActionType = "test"

	// ActionActivate purges the content affected by an activation.
	ActionActivate ActionType = "activate"
)

// Action identifies what is being replicated.
type Action struct {
	Type ActionType
	Path string
}

// Transaction is a single delivery attempt: the action plus the purge
// payload produced by the content builder (the ordered URL list used when
// the agent purges by ARL).
type Transaction struct {
	Action  Action
	Content []string
}

// Result is the classified outcome of one delivery attempt. The bridge never
// retries; Retryable tells the caller whether a retry could plausibly
// succeed.
type Result struct {
	OK        bool
	Retryable bool
	Message   string
}

// UnsupportedOperationError is returned for replication action types no
// handler implements. It is fatal and must not be retried.
type UnsupportedOperationError struct {
	Type ActionType
}

func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("replication action type %q not supported", e.Type)
}

// Status implements the HTTP status mapping used by the request handlers.
func (e UnsupportedOperationError) Status() (int, string) {
	return http.StatusBadRequest, e.Error()
}

// TransportHandler delivers replication transactions to a purge destination.
type TransportHandler interface {
	// CanHandle reports whether this handler serves the agent's transport URI.
	CanHandle(a agent.Agent) bool

	// Deliver performs one delivery attempt. An error is returned only for
	// requests that could never succeed (unsupported action types); delivery
	// failures are reported through the Result classification.
	Deliver(ctx context.Context, a agent.Agent, tx Transaction) (Result, error)
}

func resultFor(outcome akamai.Outcome) Result {
	return Result{
		OK:        outcome.Success(),
		Retryable: outcome.Retryable(),
		Message:   outcome.String(),
	}
}
