package deps

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/observability"
)

// Flatten expands dep into the ordered static dependencies that install it.
// A static dependency flattens to itself. A dynamic dependency must already
// be resolved; dynamic dependencies discovered while expanding it are
// resolved with strategies and expanded depth first.
func Flatten(ctx context.Context, project *Project, dep Dependency, strategies []Strategy) ([]StaticDependency, error) {
	return flatten(ctx, project, dep, strategies, make(map[string]bool))
}

func flatten(ctx context.Context, project *Project, dep Dependency, strategies []Strategy, visiting map[string]bool) ([]StaticDependency, error) {
	switch d := dep.(type) {
	case StaticDependency:
		return []StaticDependency{d}, nil
	case DynamicDependency:
		return flattenDynamic(ctx, project, d, strategies, visiting)
	default:
		return nil, errors.New(errors.ErrCodeInternal, "unsupported dependency type %T", dep)
	}
}

func flattenDynamic(ctx context.Context, project *Project, d DynamicDependency, strategies []Strategy, visiting map[string]bool) (out []StaticDependency, err error) {
	if !d.IsResolved() {
		return nil, errors.Resolution("dependency %s is not resolved and cannot be flattened", d.Name())
	}
	key := d.Key()
	if visiting[key] {
		return nil, errors.Resolution("dependency cycle detected at %s", d.Description())
	}
	visiting[key] = true
	defer delete(visiting, key)

	start := time.Now()
	defer func() {
		observability.Resolution().OnFlattenComplete(ctx, d.Name(), len(out), time.Since(start), err)
	}()

	children, err := d.Flatten(ctx, project)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if dyn, ok := child.(DynamicDependency); ok {
			if err := dyn.Resolve(ctx, project, strategies); err != nil {
				return nil, err
			}
		}
		steps, err := flatten(ctx, project, child, strategies, visiting)
		if err != nil {
			return nil, err
		}
		out = append(out, steps...)
	}
	return out, nil
}

// GetStaticDependencies resolves and flattens top-level dependencies into a
// single ordered list without duplicates. Siblings are resolved concurrently;
// output order follows declaration order regardless. Any failure discards
// all results.
func GetStaticDependencies(ctx context.Context, project *Project, dependencies []Dependency, strategies []Strategy) ([]StaticDependency, error) {
	results := make([][]StaticDependency, len(dependencies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(project.workers())
	for i, dep := range dependencies {
		g.Go(func() error {
			if dyn, ok := dep.(DynamicDependency); ok {
				if err := dyn.Resolve(gctx, project, strategies); err != nil {
					return err
				}
			}
			steps, err := Flatten(gctx, project, dep, strategies)
			if err != nil {
				return err
			}
			results[i] = steps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []StaticDependency
	for _, steps := range results {
		all = append(all, steps...)
	}
	return Dedupe(all), nil
}

// Dedupe drops structurally equal dependencies, keeping first occurrences.
func Dedupe[D Dependency](deps []D) []D {
	seen := make(map[string]bool, len(deps))
	out := make([]D, 0, len(deps))
	for _, d := range deps {
		k := d.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	return out
}
