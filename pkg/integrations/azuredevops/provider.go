package azuredevops

import (
	"context"
	"strings"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// ProviderName is the "vcs" value selecting Azure DevOps.
const ProviderName = "azure_devops"

// Provider opens Azure DevOps repositories.
type Provider struct {
	client *Client
	org    string
	tags   vcs.GitConfig
}

// NewProvider creates a provider from cfg.
func NewProvider(cfg Config) *Provider {
	cfg = cfg.withDefaults()
	return &Provider{
		client: NewClient(cfg),
		org:    cfg.organization(),
		tags:   vcs.GitConfig{PrefixRelease: cfg.ReleasePrefix, PrefixBeta: cfg.BetaPrefix},
	}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Matches(host string) bool {
	host = strings.ToLower(host)
	return host == "dev.azure.com" || host == "ssh.dev.azure.com" || strings.HasSuffix(host, ".visualstudio.com")
}

// Open parses an https or ssh Azure DevOps URL. When the provider is bound
// to an organization, repositories of other organizations are rejected.
func (p *Provider) Open(_ context.Context, repoURL string) (vcs.Repository, error) {
	u, err := vcs.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAzure() {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s is not an Azure DevOps repository", repoURL)
	}
	if p.org != "" && !strings.EqualFold(p.org, u.Owner) {
		return nil, errors.New(errors.ErrCodeUnauthorized,
			"repository %s belongs to organization %s, but the configured organization is %s", repoURL, u.Owner, p.org)
	}
	return NewRepository(p.client, u.Owner, u.Project, u.Name, p.tags), nil
}

var _ vcs.Provider = (*Provider)(nil)
