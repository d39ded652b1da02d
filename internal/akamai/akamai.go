// Package akamai implements a client for the Akamai CCU purge API. It builds,
// authenticates and sends a single purge (or connectivity test) request per
// call and classifies the response; retry policy belongs to the caller.
package akamai

import (
	"fmt"
)

// Type selects the kind of object identifiers submitted for purging.
type Type string

const (
	// TypeARL purges by ARL/URL list.
	TypeARL Type = "arl"

	// TypeCPCode purges by content-partition code list.
	TypeCPCode Type = "cpcode"
)

// Action selects how the CDN treats matched objects.
type Action string

const (
	// ActionRemove evicts the cached copies.
	ActionRemove Action = "remove"

	// ActionInvalidate marks cached copies stale.
	ActionInvalidate Action = "invalidate"
)

// Domain selects the purge queue tier.
type Domain string

const (
	DomainStaging    Domain = "staging"
	DomainProduction Domain = "production"
)

// Mode selects between a bare connectivity/auth check and a real purge
// submission.
type Mode int

const (
	// ModeTest issues a GET with no body; succeeds on HTTP 200.
	ModeTest Mode = iota

	// ModePurge issues a POST with the purge body; succeeds on HTTP 201.
	ModePurge
)

func (m Mode) String() string {
	switch m {
	case ModeTest:
		return "test"
	case ModePurge:
		return "purge"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseType validates an operator-supplied type value, applying the default
// when the value is empty.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeARL, TypeCPCode:
		return Type(s), nil
	case "":
		return TypeARL, nil
	}
	return "", fmt.Errorf("invalid purge type %q", s)
}

// ParseAction validates an operator-supplied action value, applying the
// default when the value is empty.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionRemove, ActionInvalidate:
		return Action(s), nil
	case "":
		return ActionRemove, nil
	}
	return "", fmt.Errorf("invalid purge action %q", s)
}

// ParseDomain validates an operator-supplied domain value, applying the
// default when the value is empty.
func ParseDomain(s string) (Domain, error) {
	switch Domain(s) {
	case DomainStaging, DomainProduction:
		return Domain(s), nil
	case "":
		return DomainProduction, nil
	}
	return "", fmt.Errorf("invalid purge domain %q", s)
}

// Credentials authenticate against the purge API. The zero value is valid for
// endpoints that accept anonymous requests (useful in tests). Credentials are
// immutable and safe to share across concurrent dispatches; they must never
// be logged.
type Credentials struct {
	Username string
	Password string
}

// PurgeRequest is the complete specification of one purge submission.
// Objects is ordered and must be non-empty; an empty list is rejected before
// any network I/O occurs.
type PurgeRequest struct {
	Type    Type
	Action  Action
	Domain  Domain
	Objects []string
}

// Outcome is the classified result of a dispatch. Exactly one of the
// accessors reports true:
//
//   - Success: the API accepted the request.
//   - Rejected: the request was not accepted, either because it failed
//     validation before sending (Status 0) or because the API returned a
//     non-success status. The caller decides whether a rejection is worth
//     retrying.
//   - TransportFailure: the request could not be delivered at all. Always
//     retryable by policy.
type Outcome struct {
	status int
	reason string
	err    error
	ok     bool
}

func successOutcome() Outcome {
	return Outcome{ok: true}
}

func rejectedOutcome(status int, reason string) Outcome {
	return Outcome{status: status, reason: reason}
}

func transportFailure(err error) Outcome {
	return Outcome{err: err}
}

// Success reports whether the purge request was accepted.
func (o Outcome) Success() bool {
	return o.ok
}

// Rejected returns the HTTP status and response body for a rejected request.
// Status is 0 when the request failed validation and was never sent.
func (o Outcome) Rejected() (status int, reason string, rejected bool) {
	if o.ok || o.err != nil {
		return 0, "", false
	}
	return o.status, o.reason, true
}

// TransportFailure returns the underlying error when the request could not be
// delivered.
func (o Outcome) TransportFailure() (error, bool) {
	return o.err, o.err != nil
}

// Retryable reports whether a retry could plausibly succeed: transport
// failures always, rejections only for server-side (5xx) statuses. Validation
// rejections and 4xx responses are fatal for the attempt.
func (o Outcome) Retryable() bool {
	if o.ok {
		return false
	}
	if o.err != nil {
		return true
	}
	return o.status >= 500
}

func (o Outcome) String() string {
	switch {
	case o.ok:
		return "success"
	case o.err != nil:
		return fmt.Sprintf("transport failure: %v", o.err)
	case o.status == 0:
		return fmt.Sprintf("rejected: %s", o.reason)
	default:
		return fmt.Sprintf("rejected: status %d: %s", o.status, o.reason)
	}
}
