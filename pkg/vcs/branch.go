package vcs

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/depflow/pkg/version"
)

// GitConfig holds the branch and tag naming conventions of a project.
type GitConfig struct {
	DefaultBranch       string `json:"default_branch" yaml:"default_branch"`
	PrefixFeature       string `json:"prefix_feature" yaml:"prefix_feature"`
	PrefixBeta          string `json:"prefix_beta" yaml:"prefix_beta"`
	PrefixRelease       string `json:"prefix_release" yaml:"prefix_release"`
	ReleaseBranchPrefix string `json:"release_branch_prefix,omitempty" yaml:"release_branch_prefix,omitempty"`
}

// DefaultGitConfig returns the conventions used when a project declares none.
func DefaultGitConfig() GitConfig {
	return GitConfig{
		DefaultBranch: "main",
		PrefixFeature: "feature/",
		PrefixBeta:    "beta/",
		PrefixRelease: "release/",
	}
}

// WithDefaults fills empty fields from [DefaultGitConfig].
func (g GitConfig) WithDefaults() GitConfig {
	d := DefaultGitConfig()
	if g.DefaultBranch == "" {
		g.DefaultBranch = d.DefaultBranch
	}
	if g.PrefixFeature == "" {
		g.PrefixFeature = d.PrefixFeature
	}
	if g.PrefixBeta == "" {
		g.PrefixBeta = d.PrefixBeta
	}
	if g.PrefixRelease == "" {
		g.PrefixRelease = d.PrefixRelease
	}
	return g
}

// ReleaseBranchPrefixOrFeature returns the prefix that marks release branches.
// Release branches are feature branches named by a release number unless a
// dedicated prefix is configured.
func (g GitConfig) ReleaseBranchPrefixOrFeature() string {
	if g.ReleaseBranchPrefix != "" {
		return g.ReleaseBranchPrefix
	}
	return g.PrefixFeature
}

// TagName returns the tag for v: the beta prefix for betas, otherwise the
// release prefix.
func (g GitConfig) TagName(v version.Version) string {
	if v.IsBeta() {
		return g.PrefixBeta + v.TagString()
	}
	return g.PrefixRelease + v.TagString()
}

// VersionFromTag parses the version encoded in a tag name, stripping the beta
// or release prefix.
func (g GitConfig) VersionFromTag(tag string) (version.Version, error) {
	switch {
	case g.PrefixBeta != "" && strings.HasPrefix(tag, g.PrefixBeta):
		tag = strings.TrimPrefix(tag, g.PrefixBeta)
	case g.PrefixRelease != "" && strings.HasPrefix(tag, g.PrefixRelease):
		tag = strings.TrimPrefix(tag, g.PrefixRelease)
	}
	return version.Parse(tag)
}

// IsBetaTag reports whether tag carries the beta prefix.
func (g GitConfig) IsBetaTag(tag string) bool {
	return g.PrefixBeta != "" && strings.HasPrefix(tag, g.PrefixBeta)
}

// IsReleaseBranch reports whether branch is exactly prefix followed by a
// release number, e.g. "feature/230".
func IsReleaseBranch(branch, prefix string) bool {
	parts, ok := releaseParts(branch, prefix)
	return ok && len(parts) == 1
}

// IsReleaseBranchOrChild also accepts child branches such as
// "feature/230__work".
func IsReleaseBranchOrChild(branch, prefix string) bool {
	_, ok := releaseParts(branch, prefix)
	return ok
}

func releaseParts(branch, prefix string) ([]string, bool) {
	if !strings.HasPrefix(branch, prefix) {
		return nil, false
	}
	parts := strings.Split(branch[len(prefix):], "__")
	if !isDigits(parts[0]) {
		return nil, false
	}
	return parts, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// FeatureBranchName strips prefix from branch. ok is false when branch does
// not start with prefix.
func FeatureBranchName(branch, prefix string) (name string, ok bool) {
	if !strings.HasPrefix(branch, prefix) {
		return "", false
	}
	return branch[len(prefix):], true
}

// ReleaseIdentifier returns the release number of a release branch or one of
// its children, e.g. "230" for "feature/230__work".
func ReleaseIdentifier(branch, prefix string) (string, bool) {
	parts, ok := releaseParts(branch, prefix)
	if !ok {
		return "", false
	}
	return parts[0], true
}

// ReleaseBranchName builds the release branch for identifier.
func ReleaseBranchName(prefix, identifier string) string {
	return prefix + identifier
}

// CurrentBranch reads the checked-out branch from repoRoot/.git/HEAD.
// It returns "" for a detached HEAD or when repoRoot is not a git checkout.
func CurrentBranch(repoRoot string) string {
	if repoRoot == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(repoRoot, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	ref := strings.TrimSpace(string(data))
	if !strings.HasPrefix(ref, "ref: ") {
		return ""
	}
	// ref: refs/heads/<branch>
	parts := strings.Split(strings.TrimPrefix(ref, "ref: "), "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[2:], "/")
}

// HeadCommit resolves the commit checked out in repoRoot, following a
// branch ref through loose refs and packed-refs. It returns "" when the
// commit cannot be determined.
func HeadCommit(repoRoot string) string {
	if repoRoot == "" {
		return ""
	}
	gitDir := filepath.Join(repoRoot, ".git")
	data, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(data))
	ref, ok := strings.CutPrefix(head, "ref: ")
	if !ok {
		return head
	}

	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		return strings.TrimSpace(string(data))
	}
	packed, err := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(packed), "\n") {
		sha, name, ok := strings.Cut(strings.TrimSpace(line), " ")
		if ok && name == ref {
			return sha
		}
	}
	return ""
}
