package replication

import (
	"context"
	"fmt"

	"github.com/edgepurge/akamai-bridge/internal/agent"
	"github.com/edgepurge/akamai-bridge/internal/akamai"
	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/rs/zerolog/log"
)

// AkamaiHandler delivers transactions to the Akamai CCU purge API. It serves
// agents whose transport URI uses the "akamai" scheme.
type AkamaiHandler struct {
	timeoutSeconds int
}

func NewAkamaiHandler(cfg config.AkamaiConfig) AkamaiHandler {
	return AkamaiHandler{
		timeoutSeconds: cfg.RequestTimeoutSeconds,
	}
}

func (h AkamaiHandler) CanHandle(a agent.Agent) bool {
	scheme := a.Scheme()
	return scheme == "akamai" || scheme == "akamai+insecure"
}

// Deliver dispatches one purge (or test) against the agent's queue endpoint.
// Test actions succeed on HTTP 200, activations on HTTP 201; everything else
// is reported through the result classification for the caller's retry
// policy to act on.
func (h AkamaiHandler) Deliver(ctx context.Context, a agent.Agent, tx Transaction) (Result, error) {
	client, err := h.client(a)
	if err != nil {
		return Result{}, err
	}

	switch tx.Action.Type {
	case ActionTest:
		outcome := client.Dispatch(ctx, akamai.PurgeRequest{}, a.Credentials, akamai.ModeTest)
		return resultFor(outcome), nil

	case ActionActivate:
		objects := tx.Content
		if a.Type == akamai.TypeCPCode {
			// cpcode agents purge their configured partitions regardless of
			// which paths were activated.
			objects = a.CPCodes
		}

		req := akamai.PurgeRequest{
			Type:    a.Type,
			Action:  a.Action,
			Domain:  a.Domain,
			Objects: objects,
		}

		outcome := client.Dispatch(ctx, req, a.Credentials, akamai.ModePurge)

		log.Info().
			Str("agent", a.Name).
			Str("path", tx.Action.Path).
			Int("objects", len(objects)).
			Bool("ok", outcome.Success()).
			Msg("purge delivery attempted")

		return resultFor(outcome), nil

	default:
		return Result{}, UnsupportedOperationError{Type: tx.Action.Type}
	}
}

func (h AkamaiHandler) client(a agent.Agent) (akamai.Client, error) {
	client, err := akamai.New(config.AkamaiConfig{
		Endpoint:              a.Endpoint(),
		RequestTimeoutSeconds: h.timeoutSeconds,
	})
	if err != nil {
		return akamai.Client{}, fmt.Errorf("could not create purge client for agent %q: %w", a.Name, err)
	}

	return client, nil
}
