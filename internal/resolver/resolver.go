// Package resolver derives the externally visible URLs affected by a content
// change. The primary URL is emitted first, the page's vanity URL (when
// present) second, and any URLs contributed by an include finder afterwards.
package resolver

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// ContentChange describes one activated repository path. It is supplied by
// the caller and never mutated here.
type ContentChange struct {
	Path      string `json:"path"`
	IsPage    bool   `json:"isPage"`
	VanityURL string `json:"vanityUrl,omitempty"`
}

// Externalizer converts an internal content path into an external URL for a
// named environment tier. Implementations are injected capabilities; the
// resolver treats a failure as "no mapping available" and degrades to the
// raw path.
type Externalizer interface {
	ExternalLink(ctx context.Context, tier string, path string) (string, error)
}

// IncludeFinder discovers pages that transitively embed a changed resource,
// so their URLs are purged too. Discovery is project specific; the default
// finder contributes nothing.
type IncludeFinder interface {
	IncludingPages(ctx context.Context, path string) ([]string, error)
}

type noIncludes struct{}

func (noIncludes) IncludingPages(context.Context, string) ([]string, error) {
	return nil, nil
}

// Resolver computes purge targets for content changes. Construct with New;
// a Resolver is immutable and safe for concurrent use.
type Resolver struct {
	externalizer Externalizer
	includes     IncludeFinder
	tier         string
}

type Option func(*Resolver)

// WithIncludeFinder installs a project-specific include discovery hook.
func WithIncludeFinder(f IncludeFinder) Option {
	return func(r *Resolver) {
		r.includes = f
	}
}

// WithTier overrides the environment tier used for externalization. The
// default is "production".
func WithTier(tier string) Option {
	return func(r *Resolver) {
		r.tier = tier
	}
}

func New(externalizer Externalizer, opts ...Option) Resolver {
	r := Resolver{
		externalizer: externalizer,
		includes:     noIncludes{},
		tier:         "production",
	}

	for _, opt := range opts {
		opt(&r)
	}

	return r
}

// Resolve returns the ordered purge targets for a change.
//
// Pages resolve to their external URL with the ".html" rendering suffix,
// followed by the vanity URL when one is set. Non-page resources, and pages
// for which externalization is unavailable, resolve to the raw internal path
// as a best-effort fallback.
func (r Resolver) Resolve(ctx context.Context, change ContentChange) []string {
	if !change.IsPage {
		return []string{change.Path}
	}

	link, err := r.externalizer.ExternalLink(ctx, r.tier, change.Path)
	if err != nil {
		// externalization being down shouldn't block a purge: fall back to
		// the raw path so the activation can still proceed.
		log.Warn().
			Str("path", change.Path).
			Err(err).
			Msg("externalization unavailable, using raw path")
		return []string{change.Path}
	}

	targets := []string{link + ".html"}

	if vanity := strings.TrimSpace(change.VanityURL); vanity != "" {
		targets = append(targets, vanity)
	}

	including, err := r.includes.IncludingPages(ctx, change.Path)
	if err != nil {
		log.Warn().
			Str("path", change.Path).
			Err(err).
			Msg("include discovery failed, continuing with direct targets")
	} else {
		targets = append(targets, including...)
	}

	return targets
}
