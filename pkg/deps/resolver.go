package deps

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/observability"
)

// Resolver turns a dynamic dependency into a concrete ref and, when the ref
// corresponds to a package release, the static dependency that installs it.
type Resolver interface {
	// CanResolve reports whether the resolver applies to dep at all.
	CanResolve(dep DynamicDependency, project *Project) bool
	// Resolve returns ("", nil, nil) to decline. A non-empty ref with a nil
	// static dependency means "install from source at ref". An error aborts
	// the pipeline.
	Resolve(ctx context.Context, dep DynamicDependency, project *Project) (ref string, static StaticDependency, err error)
}

// ResolverFunc adapts a function to a [Resolver] that applies to every
// dependency.
type ResolverFunc func(ctx context.Context, dep DynamicDependency, project *Project) (string, StaticDependency, error)

func (f ResolverFunc) CanResolve(DynamicDependency, *Project) bool { return true }

func (f ResolverFunc) Resolve(ctx context.Context, dep DynamicDependency, project *Project) (string, StaticDependency, error) {
	return f(ctx, dep, project)
}

// Registry maps strategies to resolvers. It is populated at startup and
// only read afterwards.
type Registry struct {
	resolvers map[Strategy]Resolver
}

// NewRegistry creates a registry from a strategy to resolver mapping.
func NewRegistry(resolvers map[Strategy]Resolver) *Registry {
	r := &Registry{resolvers: make(map[Strategy]Resolver, len(resolvers))}
	for s, res := range resolvers {
		r.resolvers[s] = res
	}
	return r
}

// Get returns the resolver for s.
func (r *Registry) Get(s Strategy) (Resolver, bool) {
	if r == nil {
		return nil, false
	}
	res, ok := r.resolvers[s]
	return res, ok
}

// Strategies lists registered strategies in sorted order.
func (r *Registry) Strategies() []Strategy {
	if r == nil {
		return nil
	}
	out := make([]Strategy, 0, len(r.resolvers))
	for s := range r.resolvers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetStaticDependency runs the strategy pipeline for dep. Strategies are
// tried in order; the first resolver that applies and yields a non-empty ref
// wins. A resolver error stops the pipeline immediately.
func GetStaticDependency(ctx context.Context, dep DynamicDependency, project *Project, strategies []Strategy) (string, StaticDependency, error) {
	ref, static, _, err := runPipeline(ctx, dep, project, strategies)
	return ref, static, err
}

func runPipeline(ctx context.Context, dep DynamicDependency, project *Project, strategies []Strategy) (string, StaticDependency, Strategy, error) {
	var reg *Registry
	if project != nil {
		reg = project.Resolvers
	}
	logger := project.logger()

	for _, s := range strategies {
		res, ok := reg.Get(s)
		if !ok {
			logger.Debug("no resolver registered", "strategy", s)
			continue
		}
		if !res.CanResolve(dep, project) {
			continue
		}
		ref, static, err := res.Resolve(ctx, dep, project)
		if err != nil {
			if errors.IsResolution(err) {
				return "", nil, "", err
			}
			return "", nil, "", errors.Wrap(errors.ErrCodeResolution, err, "strategy %s failed for %s", s, dep.Name())
		}
		if ref != "" {
			logger.Debug("resolved", "dependency", dep.Name(), "strategy", s, "ref", ref)
			return ref, static, s, nil
		}
	}

	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s)
	}
	return "", nil, "", errors.Resolution("could not resolve %s with strategies [%s]", dep.Name(), strings.Join(names, ", "))
}

// resolveState is embedded by dynamic dependencies to make Resolve
// idempotent and safe for concurrent callers.
type resolveState struct {
	mu sync.Mutex
}

// resolveOnce runs the pipeline unless isResolved reports true, storing the
// outcome with apply. apply is only called on success.
func resolveOnce(ctx context.Context, st *resolveState, dep DynamicDependency, isResolved func() bool, project *Project, strategies []Strategy, apply func(ref string, static StaticDependency)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if isResolved() {
		return nil
	}

	hooks := observability.Resolution()
	hooks.OnResolveStart(ctx, dep.Name())
	start := time.Now()

	ref, static, strategy, err := runPipeline(ctx, dep, project, strategies)
	hooks.OnResolveComplete(ctx, dep.Name(), string(strategy), ref, time.Since(start), err)
	if err != nil {
		return err
	}
	apply(ref, static)
	project.logger().Info("resolved dependency", "dependency", dep.Name(), "ref", shortRef(ref), "strategy", strategy)
	return nil
}

func shortRef(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
