package akamai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"
)

// responseBodyLimit bounds how much of a purge API response is read for
// classification. Responses are small JSON documents; anything beyond this is
// truncated.
const responseBodyLimit = 64 << 10

// Client dispatches purge requests to a single CCU queue endpoint. The zero
// value is not usable; construct with New. A Client holds no per-call state
// and is safe for concurrent use.
type Client struct {
	endpoint *url.URL
	timeout  time.Duration
}

func New(cfg config.AkamaiConfig) (c Client, err error) {
	u, perr := url.Parse(cfg.Endpoint)
	if perr != nil {
		err = fmt.Errorf("could not parse purge API endpoint: %w", perr)
		return
	}
	if !u.IsAbs() {
		err = fmt.Errorf("purge API endpoint must be absolute: %s", cfg.Endpoint)
		return
	}

	c.endpoint = u
	c.timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	return
}

// Dispatch performs at most one round-trip against the purge queue and
// classifies the result. In ModeTest the request is a bare GET used to verify
// connectivity and credentials. In ModePurge the request body is built from
// req and submitted via POST.
//
// An empty object list in ModePurge is rejected without any network I/O.
func (c Client) Dispatch(ctx context.Context, req PurgeRequest, creds Credentials, mode Mode) Outcome {
	var httpReq *http.Request
	var err error

	switch mode {
	case ModeTest:
		httpReq, err = http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), nil)
		if err != nil {
			return transportFailure(fmt.Errorf("could not build test request: %w", err))
		}

	case ModePurge:
		if len(req.Objects) == 0 {
			return rejectedOutcome(0, "no objects to purge")
		}

		body, berr := buildBody(req)
		if berr != nil {
			return rejectedOutcome(0, berr.Error())
		}

		httpReq, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return transportFailure(fmt.Errorf("could not build purge request: %w", err))
		}

	default:
		return rejectedOutcome(0, fmt.Sprintf("unsupported dispatch mode %s", mode))
	}

	authenticate(httpReq, creds)

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return transportFailure(fmt.Errorf("purge request failed: %w", err))
	}
	defer resp.Body.Close()

	return classify(resp, mode)
}

// purgeBody is the CCU v2 request document.
type purgeBody struct {
	Type    Type     `json:"type"`
	Action  Action   `json:"action"`
	Domain  Domain   `json:"domain"`
	Objects []string `json:"objects"`
}

// buildBody marshals the purge document and transcodes it to ISO-8859-1, the
// charset the CCU API documents for the request entity. Object identifiers
// are ASCII-safe in practice; an unmappable rune is a caller error and is
// rejected rather than silently re-encoded as UTF-8.
func buildBody(req PurgeRequest) ([]byte, error) {
	doc, err := json.Marshal(purgeBody{
		Type:    req.Type,
		Action:  req.Action,
		Domain:  req.Domain,
		Objects: req.Objects,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal purge body: %w", err)
	}

	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("purge body is not representable in ISO-8859-1: %w", err)
	}

	return encoded, nil
}

// authenticate attaches preemptive basic auth. The purge API never issues a
// 401 challenge, so credentials must travel on the first (only) request.
func authenticate(req *http.Request, creds Credentials) {
	auth := creds.Username + ":" + creds.Password
	encoded := base64.StdEncoding.EncodeToString([]byte(auth))

	req.Header.Set("Authorization", "Basic "+encoded)
	req.Header.Set("Content-Type", "application/json")
}

func classify(resp *http.Response, mode Mode) Outcome {
	expected := http.StatusOK
	if mode == ModePurge {
		expected = http.StatusCreated
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		// the status line arrived but the body didn't: the submission state is
		// unknown, so report it as undeliverable and let the caller retry.
		return transportFailure(fmt.Errorf("could not read purge response: %w", err))
	}

	if resp.StatusCode == expected {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("mode", mode.String()).
			Msg("purge request accepted")
		return successOutcome()
	}

	return rejectedOutcome(resp.StatusCode, string(body))
}

// httpClient creates the client for a single dispatch. Using the default
// transport picks up any instrumentation installed by the application, and
// the timeout enforces the bounded round-trip the caller relies on.
func (c Client) httpClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   c.timeout,
	}
}
