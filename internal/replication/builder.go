package replication

import (
	"context"

	"github.com/edgepurge/akamai-bridge/internal/resolver"
	"github.com/rs/zerolog/log"
)

// ContentBuilder produces the purge payload for an activation: the ordered
// list of externally visible URLs affected by the changed content.
type ContentBuilder struct {
	resolver resolver.Resolver
}

func NewContentBuilder(r resolver.Resolver) ContentBuilder {
	return ContentBuilder{resolver: r}
}

// Build resolves each change in order and concatenates the targets. Changes
// with a blank path contribute nothing.
func (b ContentBuilder) Build(ctx context.Context, changes []resolver.ContentChange) []string {
	var targets []string

	for _, change := range changes {
		if change.Path == "" {
			continue
		}

		resolved := b.resolver.Resolve(ctx, change)
		log.Debug().
			Str("path", change.Path).
			Strs("targets", resolved).
			Msg("purge targets resolved")

		targets = append(targets, resolved...)
	}

	return targets
}
