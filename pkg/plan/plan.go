package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/observability"
	"github.com/matzehuels/depflow/pkg/version"
)

// Action is what executing a step will do.
type Action string

const (
	ActionPending Action = "pending"
	ActionInstall Action = "install"
	ActionSkip    Action = "skip"
	ActionDeploy  Action = "deploy"
	ActionRunFlow Action = "run_flow"
)

// Step is one static dependency in install order.
type Step struct {
	Index       int       `json:"index" yaml:"index" toml:"index"`
	Kind        deps.Kind `json:"kind" yaml:"kind" toml:"kind"`
	Name        string    `json:"name" yaml:"name" toml:"name"`
	Description string    `json:"description" yaml:"description" toml:"description"`
	Action      Action    `json:"action" yaml:"action" toml:"action"`
	Reason      string    `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
	// Dependency is the declaration form of the step; it parses back to
	// the same static dependency.
	Dependency map[string]any `json:"dependency" yaml:"dependency" toml:"dependency"`

	dep deps.StaticDependency
}

// Dep returns the static dependency behind the step.
func (s Step) Dep() deps.StaticDependency { return s.dep }

// Plan is the ordered list of installs for a set of declared dependencies.
type Plan struct {
	ID        string    `json:"id" yaml:"id" toml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	Strategy  string    `json:"strategy,omitempty" yaml:"strategy,omitempty" toml:"strategy,omitempty"`
	Target    string    `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Steps     []Step    `json:"steps" yaml:"steps" toml:"steps"`
}

// New wraps an already flattened dependency list in a plan with a fresh ID.
func New(static []deps.StaticDependency) *Plan {
	p := &Plan{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Steps:     make([]Step, 0, len(static)),
	}
	for i, d := range static {
		p.Steps = append(p.Steps, Step{
			Index:       i + 1,
			Kind:        d.Kind(),
			Name:        d.Name(),
			Description: d.Description(),
			Action:      ActionPending,
			Dependency:  declaration(d),
			dep:         d,
		})
	}
	return p
}

// Build resolves declared with the named strategy set and flattens the
// result into a plan.
func Build(ctx context.Context, project *deps.Project, declared []deps.Dependency, strategy string) (*Plan, error) {
	strategies, err := project.Strategies(strategy)
	if err != nil {
		return nil, err
	}
	static, err := deps.GetStaticDependencies(ctx, project, declared, strategies)
	if err != nil {
		return nil, err
	}
	p := New(static)
	p.Strategy = strategy
	return p, nil
}

// Dependencies returns the static dependencies in order.
func (p *Plan) Dependencies() []deps.StaticDependency {
	out := make([]deps.StaticDependency, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.dep
	}
	return out
}

// Gate decides each step's action against what target has installed.
// Packages already present at the requested version or newer are skipped.
func (p *Plan) Gate(ctx context.Context, target deps.Target) error {
	installed, err := target.InstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("listing installed packages on %s: %w", target.Name(), err)
	}
	p.Target = target.Name()
	for i := range p.Steps {
		p.Steps[i].Action, p.Steps[i].Reason = decide(p.Steps[i].dep, installed)
	}
	return nil
}

func decide(dep deps.StaticDependency, installed deps.Installed) (Action, string) {
	switch d := dep.(type) {
	case *deps.PackageNamespaceVersionDependency:
		if v, err := version.Parse(d.Version); err == nil && installed.Satisfies(d.Namespace, v) {
			return ActionSkip, fmt.Sprintf("%s %s or newer is installed", d.Namespace, v)
		}
		return ActionInstall, ""
	case *deps.PackageVersionIDDependency:
		if installed.Has(d.VersionID) {
			return ActionSkip, fmt.Sprintf("%s is installed", d.VersionID)
		}
		return ActionInstall, ""
	case *deps.UnmanagedVcsDependencyFlow:
		return ActionRunFlow, ""
	default:
		return ActionDeploy, ""
	}
}

// Result reports the outcome of one executed step.
type Result struct {
	Step     int           `json:"step"`
	Name     string        `json:"name"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Execute gates the plan against target and installs every step in order
// through the project's installer. It stops at the first failure and
// returns the results gathered so far.
func (p *Plan) Execute(ctx context.Context, project *deps.Project, target deps.Target, opts *deps.InstallOptions) ([]Result, error) {
	if err := p.Gate(ctx, target); err != nil {
		return nil, err
	}

	hooks := observability.Plan()
	results := make([]Result, 0, len(p.Steps))
	for _, s := range p.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		hooks.OnStepStart(ctx, p.ID, s.Name)
		start := time.Now()

		skipped := s.Action == ActionSkip
		var err error
		if !skipped {
			err = s.dep.Install(ctx, project, target, opts)
		}
		r := Result{Step: s.Index, Name: s.Name, Skipped: skipped, Duration: time.Since(start), Err: err}
		hooks.OnStepComplete(ctx, p.ID, s.Name, skipped, r.Duration, err)
		results = append(results, r)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", s.Index, s.Name, err)
		}
	}
	return results, nil
}

// declaration renders d as the map a dependency list would declare it with.
func declaration(d deps.StaticDependency) map[string]any {
	data, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
