package azuredevops

import (
	"context"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/integrations"
	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/version"
)

// Repository implements [vcs.Repository] for one Azure DevOps Git
// repository.
//
// Azure DevOps has no release objects. Annotated tags carrying the release
// or beta prefix stand in for releases, ordered by the version encoded in
// the tag name, and CreateRelease only confirms the tag exists.
type Repository struct {
	client  *Client
	org     string
	project string
	name    string
	url     string
	tags    vcs.GitConfig

	mu            sync.Mutex
	defaultBranch string
}

// NewRepository returns a handle to org/project/_git/name.
func NewRepository(client *Client, org, project, name string, tags vcs.GitConfig) *Repository {
	r := &Repository{client: client, org: org, project: project, name: name, tags: tags}
	r.url = vcs.RepoURL{Owner: org, Project: project, Name: name, Host: "dev.azure.com"}.String()
	return r
}

func (r *Repository) URL() string   { return r.url }
func (r *Repository) Owner() string { return r.org }
func (r *Repository) Name() string  { return r.name }

// Project returns the Azure DevOps project holding the repository.
func (r *Repository) Project() string { return r.project }

func (r *Repository) api(p string, query url.Values) string {
	return r.client.repoAPI(r.org, r.project, r.name, p, query)
}

func (r *Repository) key(parts ...string) string {
	return r.org + "/" + r.project + "/" + r.name + ":" + strings.Join(parts, ":")
}

// refs lists refs under filter (a prefix such as "tags/release/") with
// annotated tags peeled.
func (r *Repository) refs(ctx context.Context, filter string) ([]refResponse, error) {
	var resp listResponse[refResponse]
	q := url.Values{"filter": {filter}, "peelTags": {"true"}}
	err := r.client.Retry(ctx, func() error { return r.client.Get(ctx, r.api("/refs", q), &resp) })
	return resp.Value, err
}

// exactRef picks the ref named full out of a prefix filtered listing.
func exactRef(refs []refResponse, full string) (refResponse, bool) {
	for _, ref := range refs {
		if ref.Name == full {
			return ref, true
		}
	}
	return refResponse{}, false
}

// RefForTag returns the object id of an annotated tag. Lightweight tags are
// reported as not found since they carry no release message.
func (r *Repository) RefForTag(ctx context.Context, tag string) (string, error) {
	refs, err := r.refs(ctx, "tags/"+tag)
	if err != nil {
		return "", notFound(err, "tag %s in %s", tag, r.url)
	}
	ref, ok := exactRef(refs, "refs/tags/"+tag)
	if !ok {
		return "", notFound(integrations.ErrNotFound, "could not find tag %s in %s", tag, r.url)
	}
	if ref.PeeledObjectID == "" {
		return "", notFound(integrations.ErrNotFound, "tag %s with SHA %s is not an annotated tag", tag, ref.ObjectID)
	}
	return ref.ObjectID, nil
}

func (r *Repository) Tag(ctx context.Context, tag string) (*vcs.Tag, error) {
	id, err := r.RefForTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	var t annotatedTagResponse
	fetch := func() error { return r.client.Get(ctx, r.api("/annotatedtags/"+id, nil), &t) }
	if err := r.client.Cached(ctx, r.key("tag", id), false, &t, fetch); err != nil {
		return nil, notFound(err, "annotated tag %s in %s", tag, r.url)
	}
	return &vcs.Tag{Name: tag, SHA: t.ObjectID, Commit: t.TaggedObject.ObjectID, Message: t.Message, Annotated: true}, nil
}

// Releases lists annotated release and beta tags, newest version first.
func (r *Repository) Releases(ctx context.Context) ([]vcs.Release, error) {
	refs, err := r.refs(ctx, "tags/")
	if err != nil {
		return nil, notFound(err, "tags of %s", r.url)
	}

	type versioned struct {
		rel vcs.Release
		v   version.Version
	}
	var out []versioned
	for _, ref := range refs {
		if ref.PeeledObjectID == "" {
			continue
		}
		if rel, v, ok := r.releaseFor(strings.TrimPrefix(ref.Name, "refs/tags/")); ok {
			out = append(out, versioned{rel, v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].v.LessThan(out[i].v) })

	releases := make([]vcs.Release, len(out))
	for i, o := range out {
		releases[i] = o.rel
	}
	return releases, nil
}

func (r *Repository) releaseFor(tag string) (vcs.Release, version.Version, bool) {
	beta := r.tags.IsBetaTag(tag)
	if !beta && !strings.HasPrefix(tag, r.tags.PrefixRelease) {
		return vcs.Release{}, version.Version{}, false
	}
	v, err := r.tags.VersionFromTag(tag)
	if err != nil {
		return vcs.Release{}, version.Version{}, false
	}
	return vcs.Release{TagName: tag, Name: v.String(), Prerelease: beta}, v, true
}

func (r *Repository) LatestRelease(ctx context.Context) (*vcs.Release, error) {
	releases, err := r.Releases(ctx)
	if err != nil {
		return nil, err
	}
	for i := range releases {
		if !releases[i].Prerelease {
			return &releases[i], nil
		}
	}
	return nil, notFound(integrations.ErrNotFound, "latest release of %s", r.url)
}

func (r *Repository) ReleaseForTag(ctx context.Context, tag string) (*vcs.Release, error) {
	if _, err := r.RefForTag(ctx, tag); err != nil {
		return nil, err
	}
	rel, _, ok := r.releaseFor(tag)
	if !ok {
		return nil, notFound(integrations.ErrNotFound, "release for tag %s in %s", tag, r.url)
	}
	return &rel, nil
}

func (r *Repository) DefaultBranch(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.defaultBranch != "" {
		return r.defaultBranch, nil
	}
	var resp repoResponse
	if err := r.client.Retry(ctx, func() error { return r.client.Get(ctx, r.api("", nil), &resp) }); err != nil {
		return "", notFound(err, "repository %s", r.url)
	}
	r.defaultBranch = strings.TrimPrefix(resp.DefaultBranch, "refs/heads/")
	return r.defaultBranch, nil
}

func (r *Repository) BranchHead(ctx context.Context, branch string) (string, error) {
	refs, err := r.refs(ctx, "heads/"+branch)
	if err != nil {
		return "", notFound(err, "branch %s in %s", branch, r.url)
	}
	ref, ok := exactRef(refs, "refs/heads/"+branch)
	if !ok {
		return "", notFound(integrations.ErrNotFound, "branch %s in %s", branch, r.url)
	}
	return ref.ObjectID, nil
}

func versionQuery(q url.Values, ref string) url.Values {
	if ref == "" {
		return q
	}
	q.Set("versionDescriptor.version", ref)
	if integrations.IsCommitSHA(ref) {
		q.Set("versionDescriptor.versionType", "commit")
	} else {
		q.Set("versionDescriptor.versionType", "branch")
	}
	return q
}

func (r *Repository) Contents(ctx context.Context, dir, ref string) ([]vcs.Entry, error) {
	scope := "/" + strings.Trim(dir, "/")
	q := versionQuery(url.Values{"scopePath": {scope}, "recursionLevel": {"OneLevel"}}, ref)

	var resp listResponse[itemResponse]
	fetch := func() error { return r.client.Get(ctx, r.api("/items", q), &resp) }
	var err error
	if integrations.IsCommitSHA(ref) {
		err = r.client.Cached(ctx, r.key("items", ref, scope), false, &resp, fetch)
	} else {
		err = r.client.Retry(ctx, fetch)
	}
	if err != nil {
		return nil, notFound(err, "%s at %s in %s", dir, ref, r.url)
	}

	var entries []vcs.Entry
	isDir := false
	for _, it := range resp.Value {
		if it.Path == scope {
			// the listing includes the scope item itself
			isDir = it.IsFolder || it.GitObjectType == "tree"
			continue
		}
		typ := vcs.EntryFile
		if it.IsFolder || it.GitObjectType == "tree" {
			typ = vcs.EntryDir
		}
		p := strings.TrimPrefix(it.Path, "/")
		entries = append(entries, vcs.Entry{Name: path.Base(p), Path: p, Type: typ})
	}
	if !isDir && len(entries) == 0 {
		return nil, notFound(integrations.ErrNotFound, "directory %s at %s in %s", dir, ref, r.url)
	}
	return entries, nil
}

func (r *Repository) FileContents(ctx context.Context, file, ref string) ([]byte, error) {
	q := versionQuery(url.Values{"path": {"/" + strings.Trim(file, "/")}, "$format": {"octetStream"}}, ref)
	headers := map[string]string{"Accept": "application/octet-stream"}

	var data []byte
	fetch := func() error {
		var err error
		data, err = r.client.GetBytes(ctx, r.api("/items", q), headers)
		return err
	}
	var err error
	if integrations.IsCommitSHA(ref) {
		err = r.client.Cached(ctx, r.key("file", ref, file), false, &data, fetch)
	} else {
		err = r.client.Retry(ctx, fetch)
	}
	if err != nil {
		return nil, notFound(err, "%s at %s in %s", file, ref, r.url)
	}
	return data, nil
}

func (r *Repository) Commit(ctx context.Context, sha string) (*vcs.Commit, error) {
	var resp commitResponse
	fetch := func() error { return r.client.Get(ctx, r.api("/commits/"+url.PathEscape(sha), nil), &resp) }
	var err error
	if integrations.IsCommitSHA(sha) {
		err = r.client.Cached(ctx, r.key("commit", sha), false, &resp, fetch)
	} else {
		err = r.client.Retry(ctx, fetch)
	}
	if err != nil {
		return nil, notFound(err, "commit %s in %s", sha, r.url)
	}
	return &vcs.Commit{SHA: resp.CommitID, Message: resp.Comment, Parents: resp.Parents}, nil
}

// CommitStatuses returns the latest status per context. ADO states are
// mapped onto the GitHub vocabulary (success, failure, pending, error).
func (r *Repository) CommitStatuses(ctx context.Context, ref string) ([]vcs.CommitStatus, error) {
	var resp listResponse[statusResponse]
	q := url.Values{"latestOnly": {"true"}}
	err := r.client.Retry(ctx, func() error {
		return r.client.Get(ctx, r.api("/commits/"+url.PathEscape(ref)+"/statuses", q), &resp)
	})
	if err != nil {
		return nil, notFound(err, "statuses of %s in %s", ref, r.url)
	}
	out := make([]vcs.CommitStatus, 0, len(resp.Value))
	for _, s := range resp.Value {
		out = append(out, vcs.CommitStatus{Context: s.Context.Name, State: statusState(s.State), Description: s.Description})
	}
	return out, nil
}

func statusState(s string) string {
	switch strings.ToLower(s) {
	case "succeeded":
		return "success"
	case "failed":
		return "failure"
	default:
		return strings.ToLower(s)
	}
}

// CreateTag creates an annotated tag; ADO creates the ref with it.
func (r *Repository) CreateTag(ctx context.Context, req vcs.TagRequest) (*vcs.Tag, error) {
	body := createTagRequest{Name: req.Name, Message: req.Message}
	body.TaggedObject.ObjectID = req.Commit

	var t annotatedTagResponse
	if err := r.client.Post(ctx, r.api("/annotatedtags", nil), body, &t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "create tag %s in %s", req.Name, r.url)
	}
	return &vcs.Tag{Name: req.Name, SHA: t.ObjectID, Commit: req.Commit, Message: req.Message, Annotated: true}, nil
}

func (r *Repository) CreateRelease(ctx context.Context, req vcs.ReleaseRequest) (*vcs.Release, error) {
	if _, err := r.RefForTag(ctx, req.TagName); err != nil {
		return nil, errors.Wrap(errors.ErrCodeVCS, err, "create release %s in %s", req.Name, r.url)
	}
	return &vcs.Release{TagName: req.TagName, Name: req.Name, Body: req.Body, Prerelease: req.Prerelease, Draft: req.Draft}, nil
}

var _ vcs.Repository = (*Repository)(nil)
