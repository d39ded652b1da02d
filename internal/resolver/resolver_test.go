package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/edgepurge/akamai-bridge/internal/config"
	"github.com/edgepurge/akamai-bridge/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExternalizer struct {
	err   error
	calls int
}

func (s *stubExternalizer) ExternalLink(ctx context.Context, tier string, path string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "https://www.example.com" + path, nil
}

type stubIncludeFinder struct {
	pages []string
	err   error
}

func (s stubIncludeFinder) IncludingPages(ctx context.Context, path string) ([]string, error) {
	return s.pages, s.err
}

func TestResolve_PageWithoutVanity(t *testing.T) {
	r := resolver.New(&stubExternalizer{})

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:   "/content/site/foo/bar",
		IsPage: true,
	})

	assert.Equal(t, []string{"https://www.example.com/content/site/foo/bar.html"}, targets)
}

func TestResolve_PageWithVanity(t *testing.T) {
	r := resolver.New(&stubExternalizer{})

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:      "/content/site/foo/bar",
		IsPage:    true,
		VanityURL: "https://www.example.com/bar",
	})

	assert.Equal(t, []string{
		"https://www.example.com/content/site/foo/bar.html",
		"https://www.example.com/bar",
	}, targets)
}

func TestResolve_BlankVanityTreatedAsAbsent(t *testing.T) {
	r := resolver.New(&stubExternalizer{})

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:      "/content/site/foo",
		IsPage:    true,
		VanityURL: "   ",
	})

	assert.Equal(t, []string{"https://www.example.com/content/site/foo.html"}, targets)
}

func TestResolve_NonPageUsesRawPath(t *testing.T) {
	ext := &stubExternalizer{}
	r := resolver.New(ext)

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path: "/content/dam/asset.png",
	})

	assert.Equal(t, []string{"/content/dam/asset.png"}, targets)
	assert.Equal(t, 0, ext.calls, "non-page resources don't consult the externalizer")
}

func TestResolve_ExternalizerFailureFallsBack(t *testing.T) {
	r := resolver.New(&stubExternalizer{err: errors.New("mapping service down")})

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:      "/content/site/foo",
		IsPage:    true,
		VanityURL: "https://www.example.com/foo",
	})

	// degraded: raw path only, vanity is not emitted without the primary URL
	assert.Equal(t, []string{"/content/site/foo"}, targets)
}

func TestResolve_IncludeFinderAppends(t *testing.T) {
	r := resolver.New(
		&stubExternalizer{},
		resolver.WithIncludeFinder(stubIncludeFinder{
			pages: []string{"https://www.example.com/embedding.html"},
		}),
	)

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:   "/content/site/fragment",
		IsPage: true,
	})

	assert.Equal(t, []string{
		"https://www.example.com/content/site/fragment.html",
		"https://www.example.com/embedding.html",
	}, targets)
}

func TestResolve_IncludeFinderFailureIgnored(t *testing.T) {
	r := resolver.New(
		&stubExternalizer{},
		resolver.WithIncludeFinder(stubIncludeFinder{err: errors.New("query failed")}),
	)

	targets := r.Resolve(context.Background(), resolver.ContentChange{
		Path:   "/content/site/foo",
		IsPage: true,
	})

	assert.Equal(t, []string{"https://www.example.com/content/site/foo.html"}, targets)
}

func tierConfig() config.ResolverConfig {
	return config.ResolverConfig{
		ProductionBaseURL: "https://www.example.com/",
		StagingBaseURL:    "https://stage.example.com",
		CacheTTLSeconds:   60,
		CacheMaxSize:      100,
	}
}

func TestTierExternalizer(t *testing.T) {
	ext := resolver.NewTierExternalizer(tierConfig())

	link, err := ext.ExternalLink(context.Background(), "production", "/content/site/foo")
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/content/site/foo", link)

	link, err = ext.ExternalLink(context.Background(), "staging", "content/site/foo")
	require.NoError(t, err)
	assert.Equal(t, "https://stage.example.com/content/site/foo", link)
}

func TestTierExternalizer_UnknownTier(t *testing.T) {
	ext := resolver.NewTierExternalizer(config.ResolverConfig{
		CacheTTLSeconds: 60,
		CacheMaxSize:    100,
	})

	_, err := ext.ExternalLink(context.Background(), "production", "/content/site/foo")
	assert.Error(t, err)
}

func TestTierExternalizer_CachedLookup(t *testing.T) {
	ext := resolver.NewTierExternalizer(tierConfig())

	first, err := ext.ExternalLink(context.Background(), "production", "/content/site/foo")
	require.NoError(t, err)

	second, err := ext.ExternalLink(context.Background(), "production", "/content/site/foo")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
