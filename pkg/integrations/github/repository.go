package github

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/integrations"
	"github.com/matzehuels/depflow/pkg/vcs"
)

const maxReleasePages = 10

// Repository implements [vcs.Repository] for one GitHub repository.
type Repository struct {
	client *Client
	owner  string
	name   string
	url    string

	mu            sync.Mutex
	defaultBranch string
}

// NewRepository returns a handle to owner/name served by client.
func NewRepository(client *Client, owner, name, webURL string) *Repository {
	return &Repository{client: client, owner: owner, name: name, url: webURL}
}

func (r *Repository) URL() string   { return r.url }
func (r *Repository) Owner() string { return r.owner }
func (r *Repository) Name() string  { return r.name }

func (r *Repository) api(format string, args ...any) string {
	return r.client.repoURL(r.owner, r.name, format, args...)
}

func (r *Repository) key(parts ...string) string {
	return r.owner + "/" + r.name + ":" + strings.Join(parts, ":")
}

func (r *Repository) ref(ctx context.Context, ref string) (gitObject, error) {
	var resp refResponse
	err := r.client.get(ctx, "", false, r.api("/git/ref/%s", integrations.EscapePath(ref)), nil, &resp)
	return resp.Object, err
}

func (r *Repository) RefForTag(ctx context.Context, tag string) (string, error) {
	obj, err := r.ref(ctx, "tags/"+tag)
	if err != nil {
		return "", notFound(err, "tag %s in %s", tag, r.url)
	}
	return obj.SHA, nil
}

func (r *Repository) Tag(ctx context.Context, tag string) (*vcs.Tag, error) {
	obj, err := r.ref(ctx, "tags/"+tag)
	if err != nil {
		return nil, notFound(err, "tag %s in %s", tag, r.url)
	}
	if obj.Type != "tag" {
		// lightweight tag pointing straight at a commit
		return &vcs.Tag{Name: tag, SHA: obj.SHA, Commit: obj.SHA}, nil
	}

	var t tagResponse
	if err := r.client.get(ctx, r.key("tag", obj.SHA), true, r.api("/git/tags/%s", obj.SHA), nil, &t); err != nil {
		return nil, notFound(err, "tag object %s in %s", obj.SHA, r.url)
	}
	return &vcs.Tag{Name: t.Tag, SHA: t.SHA, Commit: t.Object.SHA, Message: t.Message, Annotated: true}, nil
}

func (r *Repository) LatestRelease(ctx context.Context) (*vcs.Release, error) {
	var resp releaseResponse
	if err := r.client.get(ctx, "", false, r.api("/releases/latest"), nil, &resp); err != nil {
		return nil, notFound(err, "latest release of %s", r.url)
	}
	rel := resp.release()
	return &rel, nil
}

func (r *Repository) Releases(ctx context.Context) ([]vcs.Release, error) {
	var out []vcs.Release
	for page := 1; page <= maxReleasePages; page++ {
		var resp []releaseResponse
		if err := r.client.get(ctx, "", false, r.api("/releases?per_page=100&page=%d", page), nil, &resp); err != nil {
			return nil, notFound(err, "releases of %s", r.url)
		}
		for _, rel := range resp {
			out = append(out, rel.release())
		}
		if len(resp) < 100 {
			break
		}
	}
	return out, nil
}

func (r *Repository) ReleaseForTag(ctx context.Context, tag string) (*vcs.Release, error) {
	var resp releaseResponse
	if err := r.client.get(ctx, "", false, r.api("/releases/tags/%s", integrations.EscapePath(tag)), nil, &resp); err != nil {
		return nil, notFound(err, "release for tag %s in %s", tag, r.url)
	}
	rel := resp.release()
	return &rel, nil
}

func (r *Repository) DefaultBranch(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defaultBranch != "" {
		return r.defaultBranch, nil
	}
	var resp repoResponse
	if err := r.client.get(ctx, "", false, r.api(""), nil, &resp); err != nil {
		return "", notFound(err, "repository %s", r.url)
	}
	r.defaultBranch = resp.DefaultBranch
	return r.defaultBranch, nil
}

func (r *Repository) BranchHead(ctx context.Context, branch string) (string, error) {
	obj, err := r.ref(ctx, "heads/"+branch)
	if err != nil {
		return "", notFound(err, "branch %s in %s", branch, r.url)
	}
	return obj.SHA, nil
}

func (r *Repository) contentsURL(path, ref string) string {
	u := r.api("/contents/%s", integrations.EscapePath(path))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}
	return u
}

func (r *Repository) Contents(ctx context.Context, path, ref string) ([]vcs.Entry, error) {
	var raw json.RawMessage
	err := r.client.get(ctx, r.key("contents", ref, path), integrations.IsCommitSHA(ref), r.contentsURL(path, ref), nil, &raw)
	if err != nil {
		return nil, notFound(err, "%s at %s in %s", path, ref, r.url)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return nil, notFound(integrations.ErrNotFound, "directory %s at %s in %s", path, ref, r.url)
	}

	var items []contentResponse
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "decode contents of %s", path)
	}
	entries := make([]vcs.Entry, 0, len(items))
	for _, it := range items {
		typ := vcs.EntryFile
		if it.Type == "dir" {
			typ = vcs.EntryDir
		}
		entries = append(entries, vcs.Entry{Name: it.Name, Path: it.Path, Type: typ})
	}
	return entries, nil
}

func (r *Repository) FileContents(ctx context.Context, path, ref string) ([]byte, error) {
	var data []byte
	fetch := func() error {
		var err error
		data, err = r.client.GetBytes(ctx, r.contentsURL(path, ref), map[string]string{"Accept": "application/vnd.github.raw+json"})
		return err
	}
	var err error
	if integrations.IsCommitSHA(ref) {
		err = r.client.Cached(ctx, r.key("file", ref, path), false, &data, fetch)
	} else {
		err = r.client.Retry(ctx, fetch)
	}
	if err != nil {
		return nil, notFound(err, "%s at %s in %s", path, ref, r.url)
	}
	return data, nil
}

func (r *Repository) Commit(ctx context.Context, sha string) (*vcs.Commit, error) {
	var resp commitResponse
	if err := r.client.get(ctx, r.key("commit", sha), integrations.IsCommitSHA(sha), r.api("/commits/%s", url.PathEscape(sha)), nil, &resp); err != nil {
		return nil, notFound(err, "commit %s in %s", sha, r.url)
	}
	c := &vcs.Commit{SHA: resp.SHA, Message: resp.Commit.Message}
	for _, p := range resp.Parents {
		c.Parents = append(c.Parents, p.SHA)
	}
	return c, nil
}

func (r *Repository) CommitStatuses(ctx context.Context, ref string) ([]vcs.CommitStatus, error) {
	var resp combinedStatusResponse
	if err := r.client.get(ctx, "", false, r.api("/commits/%s/status", integrations.EscapePath(ref)), nil, &resp); err != nil {
		return nil, notFound(err, "statuses of %s in %s", ref, r.url)
	}
	out := make([]vcs.CommitStatus, 0, len(resp.Statuses))
	for _, s := range resp.Statuses {
		out = append(out, vcs.CommitStatus{Context: s.Context, State: s.State, Description: s.Description})
	}
	return out, nil
}

// CreateTag creates an annotated tag object and the refs/tags ref pointing
// at it.
func (r *Repository) CreateTag(ctx context.Context, req vcs.TagRequest) (*vcs.Tag, error) {
	var t tagResponse
	err := r.client.Post(ctx, r.api("/git/tags"), createTagRequest{
		Tag:     req.Name,
		Message: req.Message,
		Object:  req.Commit,
		Type:    "commit",
	}, &t)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "create tag %s in %s", req.Name, r.url)
	}

	err = r.client.Post(ctx, r.api("/git/refs"), createRefRequest{Ref: "refs/tags/" + req.Name, SHA: t.SHA}, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "create ref for tag %s in %s", req.Name, r.url)
	}
	return &vcs.Tag{Name: req.Name, SHA: t.SHA, Commit: req.Commit, Message: req.Message, Annotated: true}, nil
}

func (r *Repository) CreateRelease(ctx context.Context, req vcs.ReleaseRequest) (*vcs.Release, error) {
	var resp releaseResponse
	err := r.client.Post(ctx, r.api("/releases"), createReleaseRequest{
		TagName:    req.TagName,
		Name:       req.Name,
		Body:       req.Body,
		Prerelease: req.Prerelease,
		Draft:      req.Draft,
	}, &resp)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "create release %s in %s", req.Name, r.url)
	}
	rel := resp.release()
	return &rel, nil
}

var _ vcs.Repository = (*Repository)(nil)
