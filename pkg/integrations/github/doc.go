// Package github implements [vcs.Provider] and [vcs.Repository] over the
// GitHub REST API (https://api.github.com or a GitHub Enterprise endpoint).
//
// # Usage
//
//	p := github.NewProvider(github.Config{Token: token, Cache: c, TTL: time.Hour})
//	repo, err := p.Open(ctx, "https://github.com/org/repo")
//	if err != nil {
//	    return err
//	}
//	rel, err := repo.LatestRelease(ctx)
//
// # Authentication
//
// A token is optional for reading public repositories but required for
// private ones and for creating tags and releases. Without a token the API
// allows 60 requests per hour.
//
// # Endpoints
//
// Tags are looked up through git/ref/tags/{name}; annotated tags are then
// read from git/tags/{sha}. Branch heads come from git/ref/heads/{name},
// commit statuses from the combined status endpoint, and directory listings
// and raw files from contents/{path}?ref=.
//
// # Caching
//
// Tag objects, commits and contents requested at a full commit SHA never
// change, so they are cached. Releases, branch heads and statuses are
// always fetched live. API 404 responses surface as [vcs.ErrNotFound].
//
// [vcs.Provider]: github.com/matzehuels/depflow/pkg/vcs.Provider
// [vcs.Repository]: github.com/matzehuels/depflow/pkg/vcs.Repository
// [vcs.ErrNotFound]: github.com/matzehuels/depflow/pkg/vcs.ErrNotFound
package github
