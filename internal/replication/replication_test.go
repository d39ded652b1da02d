package replication_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/edgepurge/akamai-bridge/internal/agent"
	"github.com/edgepurge/akamai-bridge/internal/akamai"
	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/edgepurge/akamai-bridge/internal/replication"
	"github.com/edgepurge/akamai-bridge/internal/resolver"
	"github.com/edgepurge/akamai-bridge/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAgent(t *testing.T, endpoint string, purgeType akamai.Type, cpCodes []string) agent.Agent {
	t.Helper()

	doc := map[string]any{
		"agents": []map[string]any{{
			"name":         "test",
			"transportUri": "akamai+insecure://" + endpoint,
			"type":         string(purgeType),
			"cpCodes":      cpCodes,
			"username":     "u",
			"password":     "p",
		}},
	}
	data, err := json.Marshal(doc) // YAML is a superset of JSON
	require.NoError(t, err)

	set, err := agent.Parse(data, config.AkamaiConfig{})
	require.NoError(t, err)

	store := agent.NewStore()
	store.Update(set)

	a, err := store.Get("test")
	require.NoError(t, err)
	return a
}

func handlerConfig() config.AkamaiConfig {
	return config.AkamaiConfig{RequestTimeoutSeconds: 5}
}

func stripScheme(url string) string {
	return url[len("http://"):]
}

func TestAkamaiHandler_CanHandle(t *testing.T) {
	h := replication.NewAkamaiHandler(handlerConfig())

	assert.True(t, h.CanHandle(agent.Agent{TransportURI: "akamai://example.com/queue"}))
	assert.True(t, h.CanHandle(agent.Agent{TransportURI: "AKAMAI://example.com/queue"}))
	assert.False(t, h.CanHandle(agent.Agent{TransportURI: "https://example.com/queue"}))
}

func TestAkamaiHandler_DeliverActivate_ARL(t *testing.T) {
	mock := testhelpers.SetupMockPurgeServer(t)

	a := testAgent(t, stripScheme(mock.URL()), akamai.TypeARL, nil)
	h := replication.NewAkamaiHandler(handlerConfig())

	tx := replication.Transaction{
		Action:  replication.Action{Type: replication.ActionActivate, Path: "/content/site/foo"},
		Content: []string{"https://www.example.com/foo.html"},
	}

	result, err := h.Deliver(context.Background(), a, tx)
	require.NoError(t, err)
	assert.True(t, result.OK)

	var body struct {
		Type    string   `json:"type"`
		Objects []string `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(mock.LastBody, &body))
	assert.Equal(t, "arl", body.Type)
	assert.Equal(t, []string{"https://www.example.com/foo.html"}, body.Objects)
}

func TestAkamaiHandler_DeliverActivate_CPCode(t *testing.T) {
	mock := testhelpers.SetupMockPurgeServer(t)

	a := testAgent(t, stripScheme(mock.URL()), akamai.TypeCPCode, []string{"111222"})
	h := replication.NewAkamaiHandler(handlerConfig())

	tx := replication.Transaction{
		Action:  replication.Action{Type: replication.ActionActivate, Path: "/content/site/foo"},
		Content: []string{"https://www.example.com/foo.html"},
	}

	result, err := h.Deliver(context.Background(), a, tx)
	require.NoError(t, err)
	assert.True(t, result.OK)

	// cpcode agents purge configured partitions, not the resolved URLs
	var body struct {
		Type    string   `json:"type"`
		Objects []string `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(mock.LastBody, &body))
	assert.Equal(t, "cpcode", body.Type)
	assert.Equal(t, []string{"111222"}, body.Objects)
}

func TestAkamaiHandler_DeliverTest(t *testing.T) {
	mock := testhelpers.SetupMockPurgeServer(t)

	a := testAgent(t, stripScheme(mock.URL()), akamai.TypeARL, nil)
	h := replication.NewAkamaiHandler(handlerConfig())

	tx := replication.Transaction{
		Action: replication.Action{Type: replication.ActionTest},
	}

	result, err := h.Deliver(context.Background(), a, tx)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, http.MethodGet, mock.LastMethod)
}

func TestAkamaiHandler_DeliverRejected(t *testing.T) {
	mock := testhelpers.SetupMockPurgeServer(t)
	mock.PurgeStatus = http.StatusBadGateway

	a := testAgent(t, stripScheme(mock.URL()), akamai.TypeARL, nil)
	h := replication.NewAkamaiHandler(handlerConfig())

	tx := replication.Transaction{
		Action:  replication.Action{Type: replication.ActionActivate},
		Content: []string{"https://www.example.com/foo.html"},
	}

	result, err := h.Deliver(context.Background(), a, tx)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.True(t, result.Retryable)
}

func TestAkamaiHandler_UnsupportedAction(t *testing.T) {
	mock := testhelpers.SetupMockPurgeServer(t)

	a := testAgent(t, stripScheme(mock.URL()), akamai.TypeARL, nil)
	h := replication.NewAkamaiHandler(handlerConfig())

	tx := replication.Transaction{
		Action: replication.Action{Type: "deactivate"},
	}

	_, err := h.Deliver(context.Background(), a, tx)

	var unsupported replication.UnsupportedOperationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 0, mock.RequestCount)

	status, _ := unsupported.Status()
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegistry(t *testing.T) {
	registry := replication.NewRegistry()
	registry.Register("akamai", replication.NewAkamaiHandler(handlerConfig()))

	a := agent.Agent{Name: "prod", TransportURI: "akamai://example.com/queue"}
	h, err := registry.HandlerFor(a)
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = registry.HandlerFor(agent.Agent{Name: "other", TransportURI: "fastly://example.com"})
	var noHandler replication.NoHandlerError
	require.ErrorAs(t, err, &noHandler)
	assert.Equal(t, "fastly", noHandler.Scheme)
}

type pathExternalizer struct{}

func (pathExternalizer) ExternalLink(ctx context.Context, tier, path string) (string, error) {
	return "https://www.example.com" + path, nil
}

func TestContentBuilder(t *testing.T) {
	builder := replication.NewContentBuilder(resolver.New(pathExternalizer{}))

	targets := builder.Build(context.Background(), []resolver.ContentChange{
		{Path: "/content/site/a", IsPage: true, VanityURL: "https://www.example.com/a"},
		{Path: ""},
		{Path: "/content/dam/b.png"},
	})

	assert.Equal(t, []string{
		"https://www.example.com/content/site/a.html",
		"https://www.example.com/a",
		"/content/dam/b.png",
	}, targets)
}
