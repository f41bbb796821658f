package github

import (
	"time"

	"github.com/matzehuels/depflow/pkg/vcs"
)

// repoResponse is the subset of GET /repos/{owner}/{repo} we read.
type repoResponse struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Archived      bool   `json:"archived"`
}

// refResponse is a git reference.
type refResponse struct {
	Ref    string    `json:"ref"`
	Object gitObject `json:"object"`
}

type gitObject struct {
	SHA  string `json:"sha"`
	Type string `json:"type"` // "commit" or "tag"
}

// tagResponse is an annotated tag object.
type tagResponse struct {
	Tag     string    `json:"tag"`
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Object  gitObject `json:"object"`
}

type releaseResponse struct {
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	Prerelease bool      `json:"prerelease"`
	Draft      bool      `json:"draft"`
	CreatedAt  time.Time `json:"created_at"`
	HTMLURL    string    `json:"html_url"`
}

func (r releaseResponse) release() vcs.Release {
	return vcs.Release{
		TagName:    r.TagName,
		Name:       r.Name,
		Body:       r.Body,
		Prerelease: r.Prerelease,
		Draft:      r.Draft,
		CreatedAt:  r.CreatedAt,
		URL:        r.HTMLURL,
	}
}

// contentResponse is one item of a contents listing.
type contentResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file", "dir", "symlink" or "submodule"
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// combinedStatusResponse holds the latest status per context for a ref.
type combinedStatusResponse struct {
	State    string `json:"state"`
	Statuses []struct {
		Context     string `json:"context"`
		State       string `json:"state"`
		Description string `json:"description"`
	} `json:"statuses"`
}

type createTagRequest struct {
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Object  string `json:"object"`
	Type    string `json:"type"`
}

type createRefRequest struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type createReleaseRequest struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body,omitempty"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}
