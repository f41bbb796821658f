package release

import (
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/version"
)

// Options describes a release to create.
type Options struct {
	// Version is the package version number, e.g. "1.2" or "1.3 (Beta 1)".
	Version string
	// VersionID is the 04t id of the uploaded package version.
	VersionID   string
	PackageType string
	// Commit is the full sha to tag.
	Commit string
	// TagPrefix overrides the beta/release prefix from the git config.
	TagPrefix string
	// Summary is the first section of the tag message. Defaults to
	// [DefaultSummary].
	Summary string
	// Body is the release description.
	Body string
	// Dependencies are resolved and recorded in the tag message.
	Dependencies []deps.Dependency
	// Strategy names the strategy set used to resolve Dependencies.
	// Defaults to "production".
	Strategy string
}

// Result reports what [Create] did.
type Result struct {
	TagName      string                  `json:"tag_name"`
	TagCreated   bool                    `json:"tag_created"`
	Release      *vcs.Release            `json:"release"`
	Message      string                  `json:"message"`
	Dependencies []deps.StaticDependency `json:"dependencies,omitempty"`
}

// Create tags opts.Commit in repo with a structured message and publishes a
// release for the tag. It fails when a non-draft release for the tag already
// exists. An existing tag is reused as is.
func Create(ctx context.Context, project *deps.Project, repo vcs.Repository, opts Options) (*Result, error) {
	if len(opts.Commit) != 40 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "commit must be exactly 40 characters, got %q", opts.Commit)
	}
	v, err := version.Parse(opts.Version)
	if err != nil {
		return nil, err
	}

	git := project.Git.WithDefaults()
	tagName := git.TagName(v)
	if opts.TagPrefix != "" {
		tagName = opts.TagPrefix + v.TagString()
	}
	logger := project.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	if err := verifyRelease(ctx, repo, tagName); err != nil {
		return nil, err
	}
	if _, err := repo.Commit(ctx, opts.Commit); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "commit %s not found in %s", opts.Commit, repo.URL())
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = deps.AliasProduction
	}
	strategies, err := project.Strategies(strategy)
	if err != nil {
		return nil, err
	}
	static, err := deps.GetStaticDependencies(ctx, project, opts.Dependencies, strategies)
	if err != nil {
		return nil, err
	}

	summary := opts.Summary
	if summary == "" {
		summary = DefaultSummary(v.String())
	}
	msg := TagMessage{
		Summary:      summary,
		VersionID:    opts.VersionID,
		PackageType:  opts.PackageType,
		Dependencies: declarations(static),
	}.String()

	res := &Result{TagName: tagName, Message: msg, Dependencies: static}
	if _, err := repo.RefForTag(ctx, tagName); err != nil {
		if !vcs.IsNotFound(err) {
			return nil, err
		}
		if _, err := repo.CreateTag(ctx, vcs.TagRequest{Name: tagName, Message: msg, Commit: opts.Commit}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeVCS, err, "creating tag %s", tagName)
		}
		res.TagCreated = true
		logger.Info("created tag", "tag", tagName, "commit", opts.Commit)
	} else {
		logger.Warn("tag already exists, reusing it", "tag", tagName)
	}

	rel, err := repo.CreateRelease(ctx, vcs.ReleaseRequest{
		TagName:    tagName,
		Name:       v.String(),
		Body:       opts.Body,
		Prerelease: git.IsBetaTag(tagName) || v.IsBeta(),
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "creating release %s", tagName)
	}
	res.Release = rel
	logger.Info("created release", "name", rel.Name, "url", rel.URL)
	return res, nil
}

func verifyRelease(ctx context.Context, repo vcs.Repository, tagName string) error {
	rel, err := repo.ReleaseForTag(ctx, tagName)
	if err != nil {
		if vcs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if rel == nil || rel.Draft {
		return nil
	}
	return errors.New(errors.ErrCodeVCS, "release %s already exists at %s", rel.Name, rel.URL)
}

// declarations renders static dependencies in their declaration form.
func declarations(static []deps.StaticDependency) []map[string]any {
	if len(static) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(static))
	for _, d := range static {
		data, err := json.Marshal(d)
		if err != nil {
			continue
		}
		var m map[string]any
		if json.Unmarshal(data, &m) == nil {
			out = append(out, m)
		}
	}
	return out
}
