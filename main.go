package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/edgepurge/akamai-bridge/internal/agent"
	"github.com/edgepurge/akamai-bridge/internal/audit"
	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/edgepurge/akamai-bridge/internal/observe"
	"github.com/edgepurge/akamai-bridge/internal/replication"
	"github.com/edgepurge/akamai-bridge/internal/resolver"
	"github.com/edgepurge/akamai-bridge/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinas/alice"
)

func configureServerRoutes(cfg config.Config, agents *agent.Store) http.Handler {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	// The request body size is fairly limited to prevent accidental or
	// deliberate abuse. Given the current API shape, this is not configurable.
	requestLimitBytes := int64(256 << 10) // 256 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	deliveryRouteMiddleware := alice.New(requestLimiter, audit.Middleware())
	standardRouteMiddleware := alice.New(requestLimiter)

	// delivery dependencies: the resolver computes external URLs, the builder
	// assembles purge payloads, and the registry maps each agent's transport
	// scheme to its handler.
	externalizer := resolver.NewTierExternalizer(cfg.Resolver)
	builder := replication.NewContentBuilder(resolver.New(externalizer))

	registry := replication.NewRegistry()
	akamaiHandler := replication.NewAkamaiHandler(cfg.Akamai)
	registry.Register("akamai", akamaiHandler)
	registry.Register("akamai+insecure", akamaiHandler)

	mux.Handle("POST /purge/{agent}", deliveryRouteMiddleware.Then(handlePostPurge(agents, builder, registry)))
	mux.Handle("POST /agent/{agent}/test", deliveryRouteMiddleware.Then(handlePostAgentTest(agents, registry)))

	// healthchecks are not included in telemetry or auditing
	muxWithoutTelemetry.Handle("GET /healthcheck", standardRouteMiddleware.Then(handleHealthCheck()))

	return mux
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	// configure telemetry, including wrapping default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
	}

	agents, err := loadAgents(cfg)
	if err != nil {
		return err
	}

	// Reload agent configuration periodically so operator changes take effect
	// without a restart.
	if cfg.Agents.Path != "" {
		go refreshAgents(ctx, agents, cfg)
	}

	handler := configureServerRoutes(cfg, agents)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	hooks := &server.Hooks{}
	hooks.Add("telemetry", shutdownTelemetry)

	err = server.Serve(srv, cfg.Server, hooks)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func loadAgents(cfg config.Config) (*agent.Store, error) {
	agents := agent.NewStore()

	if cfg.Agents.Path == "" {
		agents.Update(agent.DefaultSet(cfg.Akamai))
		log.Info().Msg("using default agent from environment configuration")
		return agents, nil
	}

	set, err := agent.Load(cfg.Agents.Path, cfg.Akamai)
	if err != nil {
		return nil, fmt.Errorf("agent configuration failed: %w", err)
	}

	log.Info().
		Int("agents", set.Count()).
		Int("invalid", set.InvalidCount()).
		Str("path", cfg.Agents.Path).
		Msg("agent configuration loaded")

	agents.Update(set)
	return agents, nil
}

func refreshAgents(ctx context.Context, agents *agent.Store, cfg config.Config) {
	defer func() {
		if r := recover(); r != nil {
			log.Info().Interface("recover", r).Msg("background agent refresh failed; will attempt to continue.")
		}
	}()

	for {
		select {
		case <-time.After(5 * time.Minute):
			// continue
		case <-ctx.Done():
			log.Info().Msg("refresh goroutine shutting down gracefully")
			return
		}

		set, err := agent.Load(cfg.Agents.Path, cfg.Akamai)
		if err != nil {
			// log the failure to load, then continue. This may be transient, so
			// we need to keep trying.
			log.Info().Err(err).Msg("agent configuration refresh failed, continuing")
			continue
		}

		// only update the store when the document loaded; invalid individual
		// agents are retained with their errors and reported on use.
		agents.Update(set)
	}
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
