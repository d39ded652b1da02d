// This command is only used for local testing: it dispatches a single purge
// (or connectivity test) directly against the configured CCU endpoint,
// bypassing the bridge's HTTP surface.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/edgepurge/akamai-bridge/internal/akamai"
	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Endpoint       string `env:"UTIL_ENDPOINT, default=https://api.ccu.akamai.com/ccu/v2/queues/default"`
	Username       string `env:"UTIL_USERNAME, required"`
	Password       string `env:"UTIL_PASSWORD, required"`
	Type           string `env:"UTIL_TYPE, default=arl"`
	Action         string `env:"UTIL_ACTION, default=remove"`
	Domain         string `env:"UTIL_DOMAIN, default=production"`
	TimeoutSeconds int    `env:"UTIL_TIMEOUT_SECS, default=30"`
}

func main() {
	ctx := context.Background()

	cfg := Config{}
	err := envconfig.Process(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(1)
	}

	client, err := akamai.New(config.AkamaiConfig{
		Endpoint:              cfg.Endpoint,
		RequestTimeoutSeconds: cfg.TimeoutSeconds,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating client: %v\n", err)
		os.Exit(1)
	}

	creds := akamai.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}

	objects := os.Args[1:]
	if len(objects) == 0 {
		// no objects: run a connectivity/auth test instead of a purge
		outcome := client.Dispatch(ctx, akamai.PurgeRequest{}, creds, akamai.ModeTest)
		report(outcome)
		return
	}

	purgeType, err := akamai.ParseType(cfg.Type)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	action, err := akamai.ParseAction(cfg.Action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	domain, err := akamai.ParseDomain(cfg.Domain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	req := akamai.PurgeRequest{
		Type:    purgeType,
		Action:  action,
		Domain:  domain,
		Objects: objects,
	}

	fmt.Printf("purging %d object(s):\n  %s\n", len(objects), strings.Join(objects, "\n  "))

	outcome := client.Dispatch(ctx, req, creds, akamai.ModePurge)
	report(outcome)
}

func report(outcome akamai.Outcome) {
	fmt.Printf("outcome: %s\n", outcome)
	if !outcome.Success() {
		os.Exit(1)
	}
}
