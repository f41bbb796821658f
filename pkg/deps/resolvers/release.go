package resolvers

import (
	"context"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/release"
	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/version"
)

// TagResolver resolves dependencies that pin a tag.
type TagResolver struct{}

func (TagResolver) CanResolve(dep deps.DynamicDependency, _ *deps.Project) bool {
	rd, ok := dep.(deps.RepoDependency)
	return ok && rd.PinnedTag() != ""
}

func (TagResolver) Resolve(ctx context.Context, dep deps.DynamicDependency, project *deps.Project) (string, deps.StaticDependency, error) {
	rd := dep.(deps.RepoDependency)
	repo, err := rd.Repo(ctx, project)
	if err != nil {
		return "", nil, err
	}

	tag := rd.PinnedTag()
	rel, err := repo.ReleaseForTag(ctx, tag)
	if err != nil && !declined(err) {
		return "", nil, err
	}
	ref, static, err := packageFromTag(ctx, repo, rd, project, tag, rel)
	if declined(err) {
		return "", nil, errors.Resolution("tag %s not found in %s", tag, repo.URL())
	}
	return ref, static, err
}

// ReleaseResolver resolves to the newest release, or with IncludeBeta to
// the newest release or prerelease.
type ReleaseResolver struct {
	IncludeBeta bool
}

func (ReleaseResolver) CanResolve(dep deps.DynamicDependency, _ *deps.Project) bool {
	_, ok := dep.(deps.RepoDependency)
	return ok
}

func (r ReleaseResolver) Resolve(ctx context.Context, dep deps.DynamicDependency, project *deps.Project) (string, deps.StaticDependency, error) {
	rd := dep.(deps.RepoDependency)
	repo, err := rd.Repo(ctx, project)
	if err != nil {
		return "", nil, err
	}

	rel, err := r.latest(ctx, repo)
	if err != nil {
		if declined(err) {
			return "", nil, nil
		}
		return "", nil, err
	}
	if rel == nil {
		return "", nil, nil
	}
	return packageFromTag(ctx, repo, rd, project, rel.TagName, rel)
}

func (r ReleaseResolver) latest(ctx context.Context, repo vcs.Repository) (*vcs.Release, error) {
	if !r.IncludeBeta {
		return repo.LatestRelease(ctx)
	}
	releases, err := repo.Releases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range releases {
		if !releases[i].Draft {
			return &releases[i], nil
		}
	}
	return nil, nil
}

// packageFromTag builds the package dependency recorded by tag. rel may be
// nil when the tag has no release.
func packageFromTag(ctx context.Context, repo vcs.Repository, dep deps.RepoDependency, project *deps.Project, tagName string, rel *vcs.Release) (string, deps.StaticDependency, error) {
	tag, err := repo.Tag(ctx, tagName)
	if err != nil {
		return "", nil, err
	}
	ref := tag.Commit
	if flag := dep.UnmanagedFlag(); flag != nil && *flag {
		return ref, nil, nil
	}

	m, err := deps.RemoteManifest(ctx, repo, ref)
	if err != nil {
		return "", nil, err
	}
	pkg := m.Project.Package
	details := release.ParseTagMessage(tag.Message)

	if details.VersionID != "" && (details.PackageType == release.PackageType2GP || pkg.Namespace == "") {
		return ref, &deps.PackageVersionIDDependency{
			VersionID:       details.VersionID,
			VersionNumber:   versionNumber(project, tagName, rel),
			PackageName:     pkg.Name,
			PasswordEnvName: dep.PasswordEnv(),
		}, nil
	}
	if pkg.Namespace == "" {
		return ref, nil, nil
	}

	number := versionNumber(project, tagName, rel)
	if number == "" {
		return "", nil, errors.Resolution("cannot determine the version released by tag %s in %s", tagName, repo.URL())
	}
	return ref, &deps.PackageNamespaceVersionDependency{
		Namespace:       pkg.Namespace,
		Version:         number,
		PackageName:     pkg.Name,
		PasswordEnvName: dep.PasswordEnv(),
	}, nil
}

// versionNumber prefers the release name and falls back to the version
// encoded in the tag name.
func versionNumber(project *deps.Project, tagName string, rel *vcs.Release) string {
	if rel != nil {
		if v, err := version.Parse(rel.Name); err == nil {
			return v.String()
		}
	}
	git := vcs.DefaultGitConfig()
	if project != nil {
		git = project.Git.WithDefaults()
	}
	if v, err := git.VersionFromTag(tagName); err == nil {
		return v.String()
	}
	return ""
}
