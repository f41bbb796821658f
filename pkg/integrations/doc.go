// Package integrations provides HTTP clients for source hosting APIs.
//
// # Overview
//
// Each hosting service has its own subpackage implementing [vcs.Provider]
// and [vcs.Repository]:
//
//   - [github]: GitHub and GitHub Enterprise REST API
//   - [azuredevops]: Azure DevOps Git REST API
//
// # Client Pattern
//
// All providers follow a consistent pattern:
//
//	p := github.NewProvider(github.Config{Token: token, Cache: c})
//	repos := vcs.NewRegistry(p, azuredevops.NewProvider(azCfg))
//	repo, err := repos.Repo(ctx, "github", "https://github.com/org/repo")
//
// # Shared Infrastructure
//
// The [Client] type provides the HTTP plumbing used by every provider:
// default headers, JSON request and response bodies, retries with
// exponential backoff for network failures and 5xx responses, and response
// caching via [cache.Cache]. Responses addressed by a full commit SHA are
// immutable and cached; branch heads, releases and statuses are always
// fetched live.
//
// Status codes map onto the sentinel errors [ErrNotFound],
// [ErrUnauthorized], [ErrConflict] and [ErrNetwork]. Providers translate
// ErrNotFound into [vcs.ErrNotFound] so resolvers can tell a missing
// release from a failed request.
//
// [github]: github.com/matzehuels/depflow/pkg/integrations/github
// [azuredevops]: github.com/matzehuels/depflow/pkg/integrations/azuredevops
// [vcs.Provider]: github.com/matzehuels/depflow/pkg/vcs.Provider
// [vcs.Repository]: github.com/matzehuels/depflow/pkg/vcs.Repository
// [vcs.ErrNotFound]: github.com/matzehuels/depflow/pkg/vcs.ErrNotFound
// [cache.Cache]: github.com/matzehuels/depflow/pkg/cache.Cache
package integrations
