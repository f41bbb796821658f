package deps

import (
	"maps"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
)

// Strategy names a resolution policy. Each strategy is served by exactly one
// [Resolver] in a [Registry].
type Strategy string

const (
	StrategyTag                               Strategy = "tag"
	StrategyCommitStatusExactBranch           Strategy = "commit_status_exact_branch"
	StrategyCommitStatusReleaseBranch         Strategy = "commit_status_release_branch"
	StrategyCommitStatusPreviousReleaseBranch Strategy = "commit_status_previous_release_branch"
	StrategyCommitStatusDefaultBranch         Strategy = "commit_status_default_branch"
	StrategyLatestBeta                        Strategy = "latest_beta"
	StrategyLatestRelease                     Strategy = "latest_release"
	StrategyUnmanaged                         Strategy = "unmanaged"
)

// AllStrategies lists every known strategy.
var AllStrategies = []Strategy{
	StrategyTag,
	StrategyCommitStatusExactBranch,
	StrategyCommitStatusReleaseBranch,
	StrategyCommitStatusPreviousReleaseBranch,
	StrategyCommitStatusDefaultBranch,
	StrategyLatestBeta,
	StrategyLatestRelease,
	StrategyUnmanaged,
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	for _, k := range AllStrategies {
		if s == k {
			return true
		}
	}
	return false
}

// Names of the built-in strategy sets and their aliases.
const (
	SetLatestRelease = "latest_release"
	SetIncludeBeta   = "include_beta"
	SetCommitStatus  = "commit_status"

	AliasProduction    = "production"
	AliasPreproduction = "preproduction"
)

// DefaultStrategySets returns the built-in strategy sets.
func DefaultStrategySets() map[string][]Strategy {
	return map[string][]Strategy{
		SetLatestRelease: {StrategyTag, StrategyLatestRelease, StrategyUnmanaged},
		SetIncludeBeta:   {StrategyTag, StrategyLatestBeta, StrategyUnmanaged},
		SetCommitStatus: {
			StrategyTag,
			StrategyCommitStatusExactBranch,
			StrategyCommitStatusReleaseBranch,
			StrategyCommitStatusPreviousReleaseBranch,
			StrategyCommitStatusDefaultBranch,
			StrategyLatestBeta,
			StrategyUnmanaged,
		},
	}
}

// DefaultAliases maps production and preproduction to built-in sets.
func DefaultAliases() map[string]string {
	return map[string]string{
		AliasProduction:    SetLatestRelease,
		AliasPreproduction: SetIncludeBeta,
	}
}

// Strategies returns the ordered strategies for name. name may be an alias
// ("production"), a set name ("include_beta") or a single strategy
// ("latest_release" resolves as the set of that name when one exists).
func (p *Project) Strategies(name string) ([]Strategy, error) {
	sets, aliases := DefaultStrategySets(), DefaultAliases()
	if p != nil {
		if p.StrategySets != nil {
			maps.Copy(sets, p.StrategySets)
		}
		if p.Aliases != nil {
			maps.Copy(aliases, p.Aliases)
		}
	}

	if target, ok := aliases[name]; ok {
		name = target
	}
	if set, ok := sets[name]; ok {
		return append([]Strategy(nil), set...), nil
	}
	if s := Strategy(name); s.Valid() {
		return []Strategy{s}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "unknown resolution strategy %q", name)
}

// ApplyManifest copies the git conventions and strategy configuration of m
// onto p. Unknown strategy names are rejected.
func (p *Project) ApplyManifest(m *manifest.Manifest) error {
	if m == nil {
		return nil
	}
	p.Git = m.Project.Git.WithDefaults()

	r := m.Project.DependencyResolutions
	if len(r.ResolutionStrategies) > 0 {
		if p.StrategySets == nil {
			p.StrategySets = make(map[string][]Strategy)
		}
		for name, list := range r.ResolutionStrategies {
			set := make([]Strategy, 0, len(list))
			for _, s := range list {
				if !Strategy(s).Valid() {
					return errors.New(errors.ErrCodeInvalidManifest, "unknown strategy %q in set %q", s, name)
				}
				set = append(set, Strategy(s))
			}
			p.StrategySets[name] = set
		}
	}
	if r.Production != "" || r.Preproduction != "" {
		if p.Aliases == nil {
			p.Aliases = make(map[string]string)
		}
		if r.Production != "" {
			p.Aliases[AliasProduction] = r.Production
		}
		if r.Preproduction != "" {
			p.Aliases[AliasPreproduction] = r.Preproduction
		}
	}
	return nil
}
