package deps

import (
	"maps"
	"strconv"
	"strings"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// normalize rewrites the alternate spellings of a declaration into the
// canonical fields the variant schemas expect. The input is not modified.
//
//   - github: URL        -> url, vcs: github
//   - repo_owner + repo_name -> url (GitHub)
//   - url                -> repo_owner + repo_name
//   - vcs holding a URL  -> url
//   - missing vcs        -> derived from the url host
//   - numeric version    -> string
//   - skip: "path"       -> skip: ["path"]
func normalize(decl map[string]any) (map[string]any, error) {
	out := maps.Clone(decl)
	if out == nil {
		out = map[string]any{}
	}

	if gh, ok := out["github"].(string); ok {
		if u, ok := out["url"].(string); ok && u != gh {
			return nil, errors.Validation("github and url disagree: %q, %q", gh, u)
		}
		out["url"] = gh
		if _, ok := out["vcs"]; !ok {
			out["vcs"] = "github"
		}
		delete(out, "github")
	}

	if v, ok := out["vcs"].(string); ok && strings.Contains(v, "://") {
		if _, ok := out["url"]; !ok {
			out["url"] = v
		}
		delete(out, "vcs")
	}

	owner, hasOwner := out["repo_owner"].(string)
	name, hasName := out["repo_name"].(string)
	if _, hasURL := out["url"]; !hasURL && hasOwner && hasName && owner != "" && name != "" {
		out["url"] = vcs.GitHubURL(owner, name)
		if _, ok := out["vcs"]; !ok {
			out["vcs"] = "github"
		}
	}

	if u, ok := out["url"].(string); ok {
		parsed, err := vcs.ParseRepoURL(u)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid repository URL %q", u)
		}
		if !hasOwner && !hasName && !parsed.IsAzure() {
			out["repo_owner"] = parsed.Owner
			out["repo_name"] = parsed.Name
		}
		if _, ok := out["vcs"]; !ok {
			out["vcs"] = vcs.ProviderNameForURL(u)
		}
	}

	switch v := out["version"].(type) {
	case int:
		out["version"] = strconv.Itoa(v)
	case int64:
		out["version"] = strconv.FormatInt(v, 10)
	case float64:
		out["version"] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	if s, ok := out["skip"].(string); ok {
		out["skip"] = []any{s}
	}
	return out, nil
}
