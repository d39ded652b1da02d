package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Akamai   AkamaiConfig
	Agents   AgentsConfig
	Observe  ObserveConfig
	Resolver ResolverConfig
	Server   ServerConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

// AkamaiConfig specifies the CCU purge API connection settings. These are the
// defaults for agents that don't override them in the agent document.
type AkamaiConfig struct {
	// Endpoint is the CCU purge queue URL.
	Endpoint string `env:"AKAMAI_ENDPOINT, default=https://api.ccu.akamai.com/ccu/v2/queues/default"`

	// Username for the purge API. The API expects preemptive basic auth, so
	// credentials are attached to every request.
	Username string `env:"AKAMAI_USERNAME"`

	// Password for the purge API. Never logged.
	Password string `env:"AKAMAI_PASSWORD"`

	// RequestTimeoutSeconds bounds each purge round-trip. The bridge performs
	// exactly one request per dispatch and must not block indefinitely.
	RequestTimeoutSeconds int `env:"AKAMAI_REQUEST_TIMEOUT_SECS, default=30"`
}

// AgentsConfig locates the purge agent definitions.
type AgentsConfig struct {
	// Path to the YAML agent configuration document. When empty, a single
	// "default" agent is synthesized from AkamaiConfig.
	Path string `env:"AGENTS_CONFIG_PATH"`
}

// ResolverConfig specifies how internal content paths are externalized.
type ResolverConfig struct {
	// ProductionBaseURL maps the "production" tier, e.g. "https://www.example.com".
	ProductionBaseURL string `env:"RESOLVER_PRODUCTION_BASE_URL"`

	// StagingBaseURL maps the "staging" tier.
	StagingBaseURL string `env:"RESOLVER_STAGING_BASE_URL"`

	// CacheTTLSeconds is the TTL for cached externalized URLs.
	CacheTTLSeconds int `env:"RESOLVER_CACHE_TTL_SECS, default=300"`

	// CacheMaxSize is the maximum number of cached externalized URLs.
	CacheMaxSize int `env:"RESOLVER_CACHE_MAX_SIZE, default=10000"`
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=akamai-bridge"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Akamai.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid Akamai configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the purge API configuration is usable.
func (c *AkamaiConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("AKAMAI_ENDPOINT must not be empty")
	}

	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("AKAMAI_REQUEST_TIMEOUT_SECS must be positive")
	}

	return nil
}
