package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/depflow/pkg/cache"
	"github.com/matzehuels/depflow/pkg/integrations"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// Config configures GitHub access.
type Config struct {
	// Token is a personal access or app token. Empty means anonymous access,
	// which is rate limited to 60 requests per hour and cannot create tags.
	Token string
	// BaseURL overrides the API endpoint, e.g. https://ghe.example.com/api/v3.
	BaseURL string
	// Hosts lists additional web hosts served by BaseURL (GitHub Enterprise).
	Hosts []string

	Cache      cache.Cache
	Keyer      cache.Keyer
	TTL        time.Duration
	HTTPClient *http.Client
}

// Client wraps the GitHub REST API with caching and retries.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitHub API client.
func NewClient(cfg Config) *Client {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if cfg.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Token
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	c := integrations.NewClient(cfg.Cache, "github", cfg.TTL, headers).
		WithKeyer(cfg.Keyer).
		WithHTTPClient(cfg.HTTPClient)
	return &Client{Client: c, baseURL: base}
}

func (c *Client) repoURL(owner, repo, format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, repo) + fmt.Sprintf(format, args...)
}

// get fetches url into v. Immutable responses are served from the cache
// under key; everything else is fetched live with retries.
func (c *Client) get(ctx context.Context, key string, immutable bool, url string, headers map[string]string, v any) error {
	fetch := func() error { return c.GetWithHeaders(ctx, url, headers, v) }
	if immutable {
		return c.Cached(ctx, key, false, v, fetch)
	}
	return c.Retry(ctx, fetch)
}

// notFound turns an API 404 into vcs.ErrNotFound describing what is missing.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: %s", vcs.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
