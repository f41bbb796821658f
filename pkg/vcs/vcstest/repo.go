// Package vcstest provides an in-memory [vcs.Repository] for tests.
package vcstest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/depflow/pkg/vcs"
)

// Repo is an in-memory repository. The zero value is not usable; create
// one with [NewRepo]. Fields may be populated directly before use.
type Repo struct {
	RepoURL   string
	RepoOwner string
	RepoName  string

	Default  string
	Branches map[string]string            // branch -> head sha
	Tags     map[string]vcs.Tag           // tag name -> tag
	Rels     []vcs.Release                // newest first
	Files    map[string]map[string][]byte // ref -> path -> content
	Statuses map[string][]vcs.CommitStatus
	Commits  map[string]vcs.Commit

	mu    sync.Mutex
	calls map[string]*atomic.Int64 // method name -> call count
}

// NewRepo creates an empty repository at repoURL.
func NewRepo(repoURL string) *Repo {
	r := &Repo{
		RepoURL:  repoURL,
		Default:  "main",
		Branches: make(map[string]string),
		Tags:     make(map[string]vcs.Tag),
		Files:    make(map[string]map[string][]byte),
		Statuses: make(map[string][]vcs.CommitStatus),
		Commits:  make(map[string]vcs.Commit),
		calls:    make(map[string]*atomic.Int64),
	}
	if u, err := vcs.ParseRepoURL(repoURL); err == nil {
		r.RepoOwner, r.RepoName = u.Owner, u.Name
	}
	return r
}

// AddFile stores content at p for ref.
func (r *Repo) AddFile(ref, p string, content []byte) *Repo {
	if r.Files[ref] == nil {
		r.Files[ref] = make(map[string][]byte)
	}
	r.Files[ref][strings.Trim(p, "/")] = content
	return r
}

// AddDir creates an empty directory marker at p for ref.
func (r *Repo) AddDir(ref, p string) *Repo {
	return r.AddFile(ref, path.Join(p, ".keep"), nil)
}

// CallCount returns how many times method was called.
func (r *Repo) CallCount(method string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[method]; ok {
		return c.Load()
	}
	return 0
}

func (r *Repo) track(method string) {
	r.mu.Lock()
	c, ok := r.calls[method]
	if !ok {
		c = &atomic.Int64{}
		r.calls[method] = c
	}
	r.mu.Unlock()
	c.Add(1)
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", vcs.ErrNotFound, fmt.Sprintf(format, args...))
}

func (r *Repo) URL() string   { return r.RepoURL }
func (r *Repo) Owner() string { return r.RepoOwner }
func (r *Repo) Name() string  { return r.RepoName }

func (r *Repo) RefForTag(ctx context.Context, tag string) (string, error) {
	r.track("RefForTag")
	t, ok := r.Tags[tag]
	if !ok {
		return "", notFound("tag %s", tag)
	}
	return t.SHA, nil
}

func (r *Repo) Tag(ctx context.Context, tag string) (*vcs.Tag, error) {
	r.track("Tag")
	t, ok := r.Tags[tag]
	if !ok {
		return nil, notFound("tag %s", tag)
	}
	return &t, nil
}

func (r *Repo) LatestRelease(ctx context.Context) (*vcs.Release, error) {
	r.track("LatestRelease")
	for _, rel := range r.Rels {
		if !rel.Prerelease && !rel.Draft {
			return &rel, nil
		}
	}
	return nil, notFound("latest release")
}

func (r *Repo) Releases(ctx context.Context) ([]vcs.Release, error) {
	r.track("Releases")
	return append([]vcs.Release(nil), r.Rels...), nil
}

func (r *Repo) ReleaseForTag(ctx context.Context, tag string) (*vcs.Release, error) {
	r.track("ReleaseForTag")
	for _, rel := range r.Rels {
		if rel.TagName == tag {
			return &rel, nil
		}
	}
	return nil, notFound("release for tag %s", tag)
}

func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	r.track("DefaultBranch")
	return r.Default, nil
}

func (r *Repo) BranchHead(ctx context.Context, branch string) (string, error) {
	r.track("BranchHead")
	sha, ok := r.Branches[branch]
	if !ok {
		return "", notFound("branch %s", branch)
	}
	return sha, nil
}

func (r *Repo) Contents(ctx context.Context, dir, ref string) ([]vcs.Entry, error) {
	r.track("Contents")
	files, ok := r.Files[ref]
	if !ok {
		return nil, notFound("ref %s", ref)
	}
	dir = strings.Trim(dir, "/")
	seen := make(map[string]vcs.EntryType)
	for p := range files {
		rel := p
		if dir != "" {
			if !strings.HasPrefix(p, dir+"/") {
				continue
			}
			rel = strings.TrimPrefix(p, dir+"/")
		}
		name, rest, isDir := strings.Cut(rel, "/")
		if name == ".keep" {
			continue
		}
		if isDir && rest != "" {
			seen[name] = vcs.EntryDir
		} else if _, ok := seen[name]; !ok {
			seen[name] = vcs.EntryFile
		}
	}
	if len(seen) == 0 {
		return nil, notFound("path %s", dir)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	entries := make([]vcs.Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, vcs.Entry{Name: n, Path: path.Join(dir, n), Type: seen[n]})
	}
	return entries, nil
}

func (r *Repo) FileContents(ctx context.Context, p, ref string) ([]byte, error) {
	r.track("FileContents")
	data, ok := r.Files[ref][strings.Trim(p, "/")]
	if !ok {
		return nil, notFound("file %s@%s", p, ref)
	}
	return data, nil
}

func (r *Repo) Commit(ctx context.Context, sha string) (*vcs.Commit, error) {
	r.track("Commit")
	c, ok := r.Commits[sha]
	if !ok {
		return nil, notFound("commit %s", sha)
	}
	return &c, nil
}

func (r *Repo) CommitStatuses(ctx context.Context, ref string) ([]vcs.CommitStatus, error) {
	r.track("CommitStatuses")
	return r.Statuses[ref], nil
}

func (r *Repo) CreateTag(ctx context.Context, req vcs.TagRequest) (*vcs.Tag, error) {
	r.track("CreateTag")
	t := vcs.Tag{
		Name:      req.Name,
		SHA:       "tag-" + req.Commit,
		Commit:    req.Commit,
		Message:   req.Message,
		Annotated: true,
	}
	r.Tags[req.Name] = t
	return &t, nil
}

func (r *Repo) CreateRelease(ctx context.Context, req vcs.ReleaseRequest) (*vcs.Release, error) {
	r.track("CreateRelease")
	rel := vcs.Release{
		TagName:    req.TagName,
		Name:       req.Name,
		Body:       req.Body,
		Prerelease: req.Prerelease,
		Draft:      req.Draft,
	}
	r.Rels = append([]vcs.Release{rel}, r.Rels...)
	return &rel, nil
}

var _ vcs.Repository = (*Repo)(nil)

// Provider serves a fixed set of in-memory repositories.
type Provider struct {
	ProviderName string
	Repos        map[string]*Repo
}

// NewProvider creates a provider named "github" serving repos by URL.
func NewProvider(repos ...*Repo) *Provider {
	p := &Provider{ProviderName: "github", Repos: make(map[string]*Repo)}
	for _, r := range repos {
		p.Repos[r.RepoURL] = r
	}
	return p
}

func (p *Provider) Name() string             { return p.ProviderName }
func (p *Provider) Matches(host string) bool { return true }

func (p *Provider) Open(ctx context.Context, repoURL string) (vcs.Repository, error) {
	r, ok := p.Repos[repoURL]
	if !ok {
		return nil, notFound("repository %s", repoURL)
	}
	return r, nil
}
