// Package resolvers implements the built-in resolution strategies.
//
// Each strategy maps to one resolver:
//
//	tag                                    TagResolver
//	latest_release, latest_beta            ReleaseResolver
//	commit_status_exact_branch             CommitStatusResolver{Branch: ExactBranch}
//	commit_status_release_branch           CommitStatusResolver{Branch: ReleaseBranch}
//	commit_status_previous_release_branch  CommitStatusResolver{Branch: PreviousReleaseBranch}
//	commit_status_default_branch           CommitStatusResolver{Branch: DefaultBranch}
//	unmanaged                              UnmanagedResolver
//
// All of them work on [deps.RepoDependency] values and reach repositories
// through the project's VCS registry.
package resolvers

import (
	"context"
	stderrors "errors"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// NewRegistry returns a registry serving every built-in strategy.
func NewRegistry() *deps.Registry {
	return deps.NewRegistry(map[deps.Strategy]deps.Resolver{
		deps.StrategyTag:                               TagResolver{},
		deps.StrategyLatestRelease:                     ReleaseResolver{},
		deps.StrategyLatestBeta:                        ReleaseResolver{IncludeBeta: true},
		deps.StrategyCommitStatusExactBranch:           CommitStatusResolver{Branch: ExactBranch},
		deps.StrategyCommitStatusReleaseBranch:         CommitStatusResolver{Branch: ReleaseBranch},
		deps.StrategyCommitStatusPreviousReleaseBranch: CommitStatusResolver{Branch: PreviousReleaseBranch},
		deps.StrategyCommitStatusDefaultBranch:         CommitStatusResolver{Branch: DefaultBranch},
		deps.StrategyUnmanaged:                         UnmanagedResolver{},
	})
}

// UnmanagedResolver resolves to the head of the default branch with no
// package release, so the repository installs from source.
type UnmanagedResolver struct{}

func (UnmanagedResolver) CanResolve(dep deps.DynamicDependency, _ *deps.Project) bool {
	_, ok := dep.(deps.RepoDependency)
	return ok
}

func (UnmanagedResolver) Resolve(ctx context.Context, dep deps.DynamicDependency, project *deps.Project) (string, deps.StaticDependency, error) {
	repo, err := openRepo(ctx, dep, project)
	if err != nil {
		return "", nil, err
	}
	branch, err := repo.DefaultBranch(ctx)
	if err != nil {
		return "", nil, err
	}
	sha, err := repo.BranchHead(ctx, branch)
	if err != nil {
		return "", nil, err
	}
	return sha, nil, nil
}

func openRepo(ctx context.Context, dep deps.DynamicDependency, project *deps.Project) (vcs.Repository, error) {
	rd, ok := dep.(deps.RepoDependency)
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s is not a repository dependency", dep.Name())
	}
	return rd.Repo(ctx, project)
}

// declined reports whether err means "nothing to resolve here" rather than
// a failure.
func declined(err error) bool {
	return stderrors.Is(err, vcs.ErrNotFound)
}
