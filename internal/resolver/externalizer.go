package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/edgepurge/akamai-bridge/internal/cache"
	"github.com/edgepurge/akamai-bridge/internal/config"
)

// TierExternalizer is a configuration-backed Externalizer mapping tier names
// to site base URLs. Lookups are cached: activations tend to cluster on the
// same content trees.
type TierExternalizer struct {
	bases map[string]string
	cache *cache.Memory[string]
}

func NewTierExternalizer(cfg config.ResolverConfig) *TierExternalizer {
	bases := map[string]string{}
	if cfg.ProductionBaseURL != "" {
		bases["production"] = strings.TrimSuffix(cfg.ProductionBaseURL, "/")
	}
	if cfg.StagingBaseURL != "" {
		bases["staging"] = strings.TrimSuffix(cfg.StagingBaseURL, "/")
	}

	return &TierExternalizer{
		bases: bases,
		cache: cache.NewMemory[string](
			time.Duration(cfg.CacheTTLSeconds)*time.Second,
			cfg.CacheMaxSize,
		),
	}
}

func (e *TierExternalizer) ExternalLink(ctx context.Context, tier string, path string) (string, error) {
	key := tier + "|" + path
	if link, ok := e.cache.Get(key); ok {
		return link, nil
	}

	base, ok := e.bases[tier]
	if !ok {
		return "", fmt.Errorf("no base URL configured for tier %q", tier)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	link := base + path
	e.cache.Set(key, link)

	return link, nil
}
