package resolvers

import (
	"context"
	"regexp"
	"strconv"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// StatusContext is the commit status context under which CI reports the
// feature test package built for a commit.
const StatusContext = "Build Feature Test Package"

// DefaultCommitDepth is how many first-parent commits are searched for a
// status, starting at the branch head.
const DefaultCommitDepth = 5

var statusVersionID = regexp.MustCompile(`version_id:\s*(04t[0-9A-Za-z]{12}(?:[0-9A-Za-z]{3})?)`)

// BranchSelector picks the branch of the dependency repository to inspect.
// ok is false when no branch applies.
type BranchSelector func(ctx context.Context, repo vcs.Repository, project *deps.Project) (branch string, ok bool, err error)

// ExactBranch selects the branch with the same name as the project's
// current branch.
func ExactBranch(_ context.Context, _ vcs.Repository, project *deps.Project) (string, bool, error) {
	return project.CurrentBranch, project.CurrentBranch != "", nil
}

// ReleaseBranch selects the release branch the current branch belongs to.
func ReleaseBranch(_ context.Context, _ vcs.Repository, project *deps.Project) (string, bool, error) {
	prefix := project.Git.ReleaseBranchPrefixOrFeature()
	id, ok := vcs.ReleaseIdentifier(project.CurrentBranch, prefix)
	if !ok {
		return "", false, nil
	}
	return vcs.ReleaseBranchName(prefix, id), true, nil
}

// PreviousReleaseBranch selects the release branch before the current one.
func PreviousReleaseBranch(_ context.Context, _ vcs.Repository, project *deps.Project) (string, bool, error) {
	prefix := project.Git.ReleaseBranchPrefixOrFeature()
	id, ok := vcs.ReleaseIdentifier(project.CurrentBranch, prefix)
	if !ok {
		return "", false, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil || n <= 1 {
		return "", false, nil
	}
	return vcs.ReleaseBranchName(prefix, strconv.Itoa(n-1)), true, nil
}

// DefaultBranch selects the repository's default branch.
func DefaultBranch(ctx context.Context, repo vcs.Repository, _ *deps.Project) (string, bool, error) {
	b, err := repo.DefaultBranch(ctx)
	if err != nil {
		return "", false, err
	}
	return b, true, nil
}

// CommitStatusResolver finds the feature test package that CI recorded as
// a commit status on a branch of the dependency repository. It only applies
// while the project itself is on a release branch or one of its children.
type CommitStatusResolver struct {
	Branch BranchSelector
	// Depth bounds the commits searched; zero means DefaultCommitDepth.
	Depth int
}

func (r CommitStatusResolver) CanResolve(dep deps.DynamicDependency, project *deps.Project) bool {
	if _, ok := dep.(deps.RepoDependency); !ok || project == nil {
		return false
	}
	return vcs.IsReleaseBranchOrChild(project.CurrentBranch, project.Git.ReleaseBranchPrefixOrFeature())
}

func (r CommitStatusResolver) Resolve(ctx context.Context, dep deps.DynamicDependency, project *deps.Project) (string, deps.StaticDependency, error) {
	rd := dep.(deps.RepoDependency)
	repo, err := rd.Repo(ctx, project)
	if err != nil {
		return "", nil, err
	}

	branch, ok, err := r.Branch(ctx, repo, project)
	if err != nil || !ok {
		return "", nil, err
	}
	head, err := repo.BranchHead(ctx, branch)
	if err != nil {
		if declined(err) {
			return "", nil, nil
		}
		return "", nil, err
	}

	sha, versionID, err := r.findStatus(ctx, repo, head)
	if err != nil || versionID == "" {
		return "", nil, err
	}

	m, err := deps.RemoteManifest(ctx, repo, sha)
	if err != nil {
		return "", nil, err
	}
	return sha, &deps.PackageVersionIDDependency{
		VersionID:       versionID,
		PackageName:     m.Project.Package.Name,
		PasswordEnvName: rd.PasswordEnv(),
	}, nil
}

// findStatus walks first parents from head looking for a successful
// package build status.
func (r CommitStatusResolver) findStatus(ctx context.Context, repo vcs.Repository, head string) (sha, versionID string, err error) {
	depth := r.Depth
	if depth <= 0 {
		depth = DefaultCommitDepth
	}

	sha = head
	for i := 0; i < depth && sha != ""; i++ {
		statuses, err := repo.CommitStatuses(ctx, sha)
		if err != nil {
			return "", "", err
		}
		for _, s := range statuses {
			if s.Context != StatusContext || s.State != "success" {
				continue
			}
			if m := statusVersionID.FindStringSubmatch(s.Description); m != nil {
				return sha, m[1], nil
			}
		}

		c, err := repo.Commit(ctx, sha)
		if err != nil {
			if declined(err) {
				break
			}
			return "", "", err
		}
		if len(c.Parents) == 0 {
			break
		}
		sha = c.Parents[0]
	}
	return "", "", nil
}
