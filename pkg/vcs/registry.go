package vcs

import (
	"context"
	"sort"
	"sync"

	"github.com/matzehuels/depflow/pkg/errors"
)

// Provider opens repositories hosted by one service.
type Provider interface {
	// Name is the value of the "vcs" declaration field, e.g. "github".
	Name() string
	// Matches reports whether the provider serves repositories on host.
	Matches(host string) bool
	// Open returns a handle to the repository at repoURL.
	Open(ctx context.Context, repoURL string) (Repository, error)
}

// Registry maps provider names and hosts to providers. Opened repositories
// are memoized by URL.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	repos     map[string]Repository
}

// NewRegistry creates a registry holding providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		repos:     make(map[string]Repository),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Provider returns the provider for name, falling back to a host match on
// repoURL when name is empty or unknown.
func (r *Registry) Provider(name, repoURL string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if u, err := ParseRepoURL(repoURL); err == nil {
		for _, n := range sortedKeys(r.providers) {
			if p := r.providers[n]; p.Matches(u.Host) {
				return p, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "no VCS provider for %q (%s)", name, repoURL)
}

// Repo opens the repository at repoURL using the named provider.
func (r *Registry) Repo(ctx context.Context, name, repoURL string) (Repository, error) {
	r.mu.Lock()
	if repo, ok := r.repos[repoURL]; ok {
		r.mu.Unlock()
		return repo, nil
	}
	r.mu.Unlock()

	p, err := r.Provider(name, repoURL)
	if err != nil {
		return nil, err
	}
	repo, err := p.Open(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.repos[repoURL] = repo
	r.mu.Unlock()
	return repo, nil
}

func sortedKeys(m map[string]Provider) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
