package vcs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/depflow/pkg/errors"
)

// RepoURL is the parsed form of a repository locator.
type RepoURL struct {
	Owner   string // GitHub owner, or Azure DevOps organization
	Name    string
	Host    string
	Project string // Azure DevOps project; empty elsewhere
}

// IsAzure reports whether the URL points at Azure DevOps.
func (r RepoURL) IsAzure() bool {
	return strings.Contains(r.Host, "azure") || strings.HasSuffix(r.Host, "visualstudio.com")
}

// String returns the canonical https URL.
func (r RepoURL) String() string {
	if r.IsAzure() {
		return fmt.Sprintf("https://dev.azure.com/%s/%s/_git/%s", r.Owner, r.Project, r.Name)
	}
	host := r.Host
	if host == "api.github.com" {
		host = "github.com"
	}
	return fmt.Sprintf("https://%s/%s/%s", host, r.Owner, r.Name)
}

// ParseRepoURL parses GitHub and Azure DevOps repository URLs.
//
// Accepted forms include:
//
//	https://github.com/owner/repo(.git)(/)
//	git@github.com:owner/repo.git
//	https://api.github.com/repos/owner/repo
//	https://user@dev.azure.com/org/project/_git/repo
//	git@ssh.dev.azure.com:v3/org/project/repo
func ParseRepoURL(raw string) (RepoURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "repository URL is empty")
	}

	var host, path string
	var ssh bool
	if strings.HasPrefix(raw, "git@") {
		// scp-like syntax: git@host:path
		rest := strings.TrimPrefix(raw, "git@")
		i := strings.Index(rest, ":")
		if i < 0 {
			return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "invalid repository URL %q", raw)
		}
		host, path, ssh = rest[:i], rest[i+1:], true
	} else {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "invalid repository URL %q", raw)
		}
		host, path = u.Hostname(), u.Path
	}

	parts := splitPath(path)
	if len(parts) < 2 {
		return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "repository URL %q has no owner and name", raw)
	}

	r := RepoURL{
		Host:  host,
		Name:  strings.TrimSuffix(parts[len(parts)-1], ".git"),
		Owner: parts[len(parts)-2],
	}

	if r.IsAzure() {
		if ssh && parts[0] == "v3" {
			parts = parts[1:]
		}
		if len(parts) < 3 {
			return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "azure repository URL %q has no project", raw)
		}
		r.Owner = parts[0]
		r.Project = parts[1]
	}

	if r.Name == "" || r.Owner == "" {
		return RepoURL{}, errors.New(errors.ErrCodeInvalidInput, "repository URL %q has no owner and name", raw)
	}
	return r, nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(strings.Trim(p, "/"), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// GitHubURL builds the canonical GitHub URL for owner and name.
func GitHubURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, name)
}

// ProviderNameForURL guesses the provider name from a repository URL host.
// Unknown hosts default to "github".
func ProviderNameForURL(raw string) string {
	r, err := ParseRepoURL(raw)
	if err == nil && r.IsAzure() {
		return "azure_devops"
	}
	return "github"
}
