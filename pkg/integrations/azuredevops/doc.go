// Package azuredevops implements [vcs.Provider] and [vcs.Repository] over
// the Azure DevOps Git REST API (api-version 7.0).
//
// # Usage
//
//	p := azuredevops.NewProvider(azuredevops.Config{
//	    Token:           pat,
//	    OrganizationURL: "dev.azure.com/contoso",
//	})
//	repo, err := p.Open(ctx, "https://dev.azure.com/contoso/Project/_git/repo")
//
// # Tags and releases
//
// Tags are looked up with the refs endpoint (filter=tags/<name>,
// peelTags=true). Only annotated tags qualify: a ref without a peeled
// object id is reported as not found. Azure DevOps has no release objects,
// so annotated tags named with the release or beta prefix are treated as
// releases and ordered by the version in their name.
//
// # Statuses
//
// Commit statuses use the latest status per context. ADO states are
// mapped to success, failure, pending and error so that commit status
// resolution works the same as on GitHub.
//
// [vcs.Provider]: github.com/matzehuels/depflow/pkg/vcs.Provider
// [vcs.Repository]: github.com/matzehuels/depflow/pkg/vcs.Repository
package azuredevops
