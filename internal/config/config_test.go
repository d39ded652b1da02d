package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.ccu.akamai.com/ccu/v2/queues/default", cfg.Akamai.Endpoint)
	assert.Equal(t, 30, cfg.Akamai.RequestTimeoutSeconds)
	assert.Equal(t, 300, cfg.Resolver.CacheTTLSeconds)
	assert.False(t, cfg.Observe.Enabled)
	assert.Equal(t, "akamai-bridge", cfg.Observe.ServiceName)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AKAMAI_ENDPOINT", "https://purge.internal.example.com/queue")
	t.Setenv("AKAMAI_USERNAME", "svc-purge")
	t.Setenv("AKAMAI_REQUEST_TIMEOUT_SECS", "10")
	t.Setenv("RESOLVER_PRODUCTION_BASE_URL", "https://www.example.com")
	t.Setenv("AGENTS_CONFIG_PATH", "/etc/bridge/agents.yaml")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, "https://purge.internal.example.com/queue", cfg.Akamai.Endpoint)
	assert.Equal(t, "svc-purge", cfg.Akamai.Username)
	assert.Equal(t, 10, cfg.Akamai.RequestTimeoutSeconds)
	assert.Equal(t, "https://www.example.com", cfg.Resolver.ProductionBaseURL)
	assert.Equal(t, "/etc/bridge/agents.yaml", cfg.Agents.Path)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("AKAMAI_REQUEST_TIMEOUT_SECS", "0")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "AKAMAI_REQUEST_TIMEOUT_SECS")
}

func TestAkamaiConfig_Validate(t *testing.T) {
	cfg := AkamaiConfig{Endpoint: "", RequestTimeoutSeconds: 30}
	assert.ErrorContains(t, cfg.Validate(), "AKAMAI_ENDPOINT")

	cfg = AkamaiConfig{Endpoint: "https://example.com", RequestTimeoutSeconds: 30}
	assert.NoError(t, cfg.Validate())
}
