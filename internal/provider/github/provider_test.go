package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestr8/federation/internal/provider"
)

const apiDesignFile = `---
title: API Design
tags:
  - api
dependencies:
  - skills/http-basics
---
# API Design
`

// newGitHubStub serves a minimal slice of the hosting API: one repo with a
// nested tree and one fetchable blob.
func newGitHubStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/acme/resources/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(treeResponse{
			Tree: []treeEntry{
				{Path: "agents", Type: "tree"},
				{Path: "agents/reviewer.md", Type: "blob", Size: 400},
				{Path: "skills/api-design.md", Type: "blob", Size: 800},
				{Path: "README.md", Type: "blob", Size: 100},
			},
		})
	})

	mux.HandleFunc("/repos/acme/resources/contents/skills/api-design.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(contentsResponse{
			Content:  base64.StdEncoding.EncodeToString([]byte(apiDesignFile)),
			Encoding: "base64",
			HTMLURL:  "https://github.com/acme/resources/blob/main/skills/api-design.md",
		})
	})

	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "41")
		w.Write([]byte(`{}`))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	return New(Config{
		Repos:         []RepoConfig{{Owner: "acme", Repo: "resources"}},
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
	}, nil)
}

func TestGitHubFetchIndex(t *testing.T) {
	srv := newGitHubStub(t)
	p := newTestProvider(t, srv.URL)
	require.NoError(t, p.Initialize(context.Background()))

	idx, err := p.FetchIndex(context.Background())
	require.NoError(t, err)

	t.Run("classifies blobs only", func(t *testing.T) {
		require.Equal(t, 2, idx.TotalCount)
		assert.Equal(t, "acme/resources/agents/reviewer.md", idx.Resources[0].ID)
		assert.Equal(t, provider.CategoryAgents, idx.Resources[0].Category)
		assert.Equal(t, "reviewer", idx.Resources[0].Title)
		assert.Equal(t, 100, idx.Resources[0].EstimatedTokens)
	})

	t.Run("records layout", func(t *testing.T) {
		layout, ok := p.Layout("acme/resources")
		require.True(t, ok)
		assert.Equal(t, LayoutNested, layout)
	})

	t.Run("records quota from headers", func(t *testing.T) {
		assert.Equal(t, 42, p.Stats().QuotaRemaining)
	})

	t.Run("second call served from cache", func(t *testing.T) {
		_, err := p.FetchIndex(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.Stats().CacheHits)
	})
}

func TestGitHubFetchResource(t *testing.T) {
	srv := newGitHubStub(t)
	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	t.Run("decodes and parses blob", func(t *testing.T) {
		res, err := p.FetchResource(ctx, "acme/resources/skills/api-design.md", provider.CategorySkills)
		require.NoError(t, err)
		assert.Equal(t, "API Design", res.Title)
		assert.Contains(t, res.Content, "# API Design")
		assert.Equal(t, []string{"skills/http-basics"}, res.Dependencies)
		assert.Equal(t, "https://github.com/acme/resources/blob/main/skills/api-design.md", res.SourceURI)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		_, err := p.FetchResource(ctx, "not-composite", provider.CategorySkills)
		assert.True(t, provider.IsNotFound(err))
	})

	t.Run("unknown repo is not found", func(t *testing.T) {
		_, err := p.FetchResource(ctx, "other/repo/skills/x.md", provider.CategorySkills)
		assert.True(t, provider.IsNotFound(err))
	})

	t.Run("upstream 404 is not found", func(t *testing.T) {
		_, err := p.FetchResource(ctx, "acme/resources/skills/missing.md", provider.CategorySkills)
		assert.True(t, provider.IsNotFound(err))
	})
}

func TestGitHubMissesDoNotOpenBreaker(t *testing.T) {
	srv := newGitHubStub(t)
	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	// Well past the consecutive-failure threshold.
	for i := 0; i < 8; i++ {
		_, err := p.FetchResource(ctx, "acme/resources/skills/missing.md", provider.CategorySkills)
		require.True(t, provider.IsNotFound(err))
	}

	res, err := p.FetchResource(ctx, "acme/resources/skills/api-design.md", provider.CategorySkills)
	require.NoError(t, err)
	assert.Equal(t, "API Design", res.Title)
}

func TestGitHubHealthCheck(t *testing.T) {
	srv := newGitHubStub(t)
	p := newTestProvider(t, srv.URL)

	h := p.HealthCheck(context.Background())
	assert.Equal(t, provider.StatusHealthy, h.Status)
	assert.True(t, h.Reachable)
	assert.False(t, h.Authenticated) // no token configured
}

func TestGitHubMapStatus(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		headers map[string]string
		kind    provider.ErrKind
	}{
		{"not found", 404, nil, provider.KindNotFound},
		{"unauthorized", 401, nil, provider.KindAuthentication},
		{"quota exhausted", 403, map[string]string{"X-RateLimit-Remaining": "0"}, provider.KindRateLimited},
		{"forbidden without quota header", 403, nil, provider.KindAuthentication},
		{"server error", 500, nil, provider.KindUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			_, err := p.FetchIndex(context.Background())
			require.Error(t, err)
			// FetchIndex wraps per-repo failures in an aggregate message.
			assert.Contains(t, err.Error(), string(tc.kind))
		})
	}
}
