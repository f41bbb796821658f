// Package vcs defines the provider-neutral view of a source repository used
// by dependency resolution, flattening and release creation.
//
// # Repositories
//
// A [Repository] is a handle to a single hosted repository. It exposes the
// read operations the resolvers need (tags, releases, branch heads, commit
// statuses, directory listings and file contents) and the two write
// operations used when publishing a release ([Repository.CreateTag] and
// [Repository.CreateRelease]).
//
// Concrete implementations live in pkg/integrations/github and
// pkg/integrations/azuredevops. Package vcstest provides an in-memory
// implementation for tests.
//
// # Providers
//
// A [Provider] opens repositories for one hosting service. Providers are
// collected in a [Registry], which is passed explicitly to every caller; there
// is no package-level provider state.
package vcs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (possibly wrapped) when a tag, release, branch,
// commit or path does not exist.
var ErrNotFound = errors.New("vcs: not found")

// EntryType is the kind of a directory entry.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is a single item in a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// Tag is an annotated tag.
type Tag struct {
	Name      string `json:"name"`
	SHA       string `json:"sha"`    // SHA of the tag object
	Commit    string `json:"commit"` // SHA of the tagged commit
	Message   string `json:"message"`
	Annotated bool   `json:"annotated"`
}

// Release is a published release.
type Release struct {
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Body       string    `json:"body,omitempty"`
	Prerelease bool      `json:"prerelease"`
	Draft      bool      `json:"draft"`
	CreatedAt  time.Time `json:"created_at"`
	URL        string    `json:"html_url,omitempty"`
}

// Commit is a single commit.
type Commit struct {
	SHA     string   `json:"sha"`
	Message string   `json:"message"`
	Parents []string `json:"parents,omitempty"`
}

// CommitStatus is a status reported against a commit by CI.
type CommitStatus struct {
	Context     string `json:"context"`
	State       string `json:"state"`
	Description string `json:"description"`
}

// TagRequest describes an annotated tag to create.
type TagRequest struct {
	Name    string
	Message string
	Commit  string
}

// ReleaseRequest describes a release to create.
type ReleaseRequest struct {
	TagName    string
	Name       string
	Body       string
	Prerelease bool
	Draft      bool
}

// Repository is a handle to a hosted repository.
type Repository interface {
	// URL returns the canonical https URL of the repository.
	URL() string
	Owner() string
	Name() string

	// RefForTag returns the object SHA the tag ref points at.
	RefForTag(ctx context.Context, tag string) (string, error)
	// Tag returns the annotated tag named tag.
	Tag(ctx context.Context, tag string) (*Tag, error)

	LatestRelease(ctx context.Context) (*Release, error)
	// Releases lists releases newest first, including prereleases.
	Releases(ctx context.Context) ([]Release, error)
	ReleaseForTag(ctx context.Context, tag string) (*Release, error)

	DefaultBranch(ctx context.Context) (string, error)
	// BranchHead returns the commit SHA at the tip of branch.
	BranchHead(ctx context.Context, branch string) (string, error)

	// Contents lists the directory at path as of ref.
	Contents(ctx context.Context, path, ref string) ([]Entry, error)
	// FileContents returns the raw bytes of the file at path as of ref.
	FileContents(ctx context.Context, path, ref string) ([]byte, error)

	Commit(ctx context.Context, sha string) (*Commit, error)
	CommitStatuses(ctx context.Context, ref string) ([]CommitStatus, error)

	CreateTag(ctx context.Context, req TagRequest) (*Tag, error)
	CreateRelease(ctx context.Context, req ReleaseRequest) (*Release, error)
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
