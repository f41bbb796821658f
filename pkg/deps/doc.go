// Package deps resolves and flattens project dependencies into an ordered,
// installable sequence.
//
// # Overview
//
// A project declares dependencies as loosely typed maps (usually in its
// depflow.yml). [ParseDependency] turns each declaration into one of the
// dependency variants:
//
//   - Static, immediately installable: [PackageNamespaceVersionDependency],
//     [PackageVersionIDDependency], [UnmanagedVcsRefDependency],
//     [UnmanagedZipURLDependency] and [UnmanagedVcsDependencyFlow].
//   - Dynamic, needing resolution first: [VcsDynamicDependency] and
//     [VcsDynamicSubfolderDependency].
//
// # Resolution
//
// A dynamic dependency is resolved by running an ordered list of
// [Strategy] values through the resolvers registered in the project's
// [Registry]. The first resolver that applies and returns a ref wins; a
// resolver error stops the pipeline. Resolution happens at most once per
// dependency instance:
//
//	strategies, _ := project.Strategies("production")
//	if err := dep.Resolve(ctx, project, strategies); err != nil {
//	    return err
//	}
//
// Concrete resolvers live in package resolvers.
//
// # Flattening
//
// [Flatten] expands a resolved dependency depth first. For a repository
// dependency the order is fixed:
//
//  1. dependencies declared by the repository's own manifest
//  2. unpackaged/pre folders, sorted by path
//  3. the package release, or the repository root when installing unmanaged
//  4. unpackaged/post folders, sorted by path
//
// [GetStaticDependencies] does this for a whole list of top-level
// dependencies, resolving siblings concurrently, and drops duplicates while
// keeping first occurrences.
//
// # Installing
//
// Static dependencies install through the [Installer] carried by the
// [Project]. Package installs are skipped when the [Target] already has an
// equal or newer version.
package deps
