package azuredevops

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/depflow/pkg/cache"
	"github.com/matzehuels/depflow/pkg/integrations"
	"github.com/matzehuels/depflow/pkg/vcs"
)

const (
	// DefaultBaseURL is the Azure DevOps Services endpoint.
	DefaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.0"
)

// Config configures Azure DevOps access.
type Config struct {
	// Token is a personal access token, sent with basic auth.
	Token string
	// OrganizationURL restricts the provider to one organization, e.g.
	// dev.azure.com/contoso. Empty accepts any organization.
	OrganizationURL string
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string

	// ReleasePrefix and BetaPrefix select which tags count as releases.
	// They default to "release/" and "beta/".
	ReleasePrefix string
	BetaPrefix    string

	Cache      cache.Cache
	Keyer      cache.Keyer
	TTL        time.Duration
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.ReleasePrefix == "" {
		c.ReleasePrefix = "release/"
	}
	if c.BetaPrefix == "" {
		c.BetaPrefix = "beta/"
	}
	return c
}

// organization extracts the organization name from OrganizationURL.
func (c Config) organization() string {
	s := strings.TrimPrefix(strings.TrimPrefix(c.OrganizationURL, "https://"), "http://")
	s = strings.Trim(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	if org, _, ok := strings.Cut(s, ".visualstudio.com"); ok {
		return org
	}
	return ""
}

// Client wraps the Azure DevOps Git REST API.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a client authenticating with cfg.Token.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	headers := map[string]string{"Accept": "application/json"}
	if cfg.Token != "" {
		headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.Token))
	}
	c := integrations.NewClient(cfg.Cache, "azure_devops", cfg.TTL, headers).
		WithKeyer(cfg.Keyer).
		WithHTTPClient(cfg.HTTPClient)
	return &Client{Client: c, baseURL: cfg.BaseURL}
}

// repoAPI builds a URL under _apis/git/repositories/{repo}.
func (c *Client) repoAPI(org, project, repo, path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/%s/%s/_apis/git/repositories/%s%s?%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(project), url.PathEscape(repo), path, query.Encode())
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return fmt.Errorf("%w: %s", vcs.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
