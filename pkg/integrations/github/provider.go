package github

import (
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/depflow/pkg/vcs"
)

// ProviderName is the "vcs" value selecting GitHub.
const ProviderName = "github"

// Provider opens GitHub repositories.
type Provider struct {
	client *Client
	hosts  []string
}

// NewProvider creates a provider for github.com plus any configured
// enterprise hosts.
func NewProvider(cfg Config) *Provider {
	hosts := []string{"github.com", "api.github.com", "www.github.com"}
	for _, h := range cfg.Hosts {
		hosts = append(hosts, strings.ToLower(h))
	}
	return &Provider{client: NewClient(cfg), hosts: hosts}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Matches(host string) bool {
	return slices.Contains(p.hosts, strings.ToLower(host))
}

func (p *Provider) Open(_ context.Context, repoURL string) (vcs.Repository, error) {
	u, err := vcs.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	if err := ValidateRepoRef(u.Owner, u.Name); err != nil {
		return nil, err
	}
	return NewRepository(p.client, u.Owner, u.Name, u.String()), nil
}

var _ vcs.Provider = (*Provider)(nil)
