// Package pkg provides the core libraries for depflow dependency resolution.
//
// # Overview
//
// Depflow turns the dependencies a project declares into a flat, ordered
// list of concrete installs: package versions, metadata deployments and flow
// runs. Repository dependencies are resolved through a configurable list of
// strategies, their own dependencies and unpackaged metadata are flattened
// recursively, and the result is deduplicated in install order.
//
// # Architecture
//
// The typical data flow through depflow:
//
//	depflow.yml / declarations
//	         ↓
//	    [manifest] + [deps] (parse declarations into dependency variants)
//	         ↓
//	    [deps/resolvers] (strategies against [vcs] repositories)
//	         ↓
//	    [deps] Flatten / GetStaticDependencies
//	         ↓
//	    [plan] (gate against a target, export, execute)
//
// # Main Packages
//
// [version] - Package version numbers with beta ordering.
//
// [errors] - Coded errors shared by every package.
//
// [vcs] - Repository abstraction, branch and tag conventions, provider
// registry. [vcs/vcstest] holds an in-memory repository for tests.
//
// [integrations] - HTTP client plumbing with response caching. The github
// and azuredevops subpackages implement [vcs.Repository].
//
// [cache] - File, Redis and null caches behind one interface.
//
// [manifest] - Schema-validated project manifests.
//
// [deps] - Dependency variants, strategy sets, resolution and flattening.
//
// [plan] - Install plans, installed-package snapshots and exports.
//
// [release] - Structured release tags that resolvers read back.
//
// [observability] - Hooks around resolution and plan execution.
package pkg
