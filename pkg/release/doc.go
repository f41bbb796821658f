// Package release publishes package versions as annotated tags and releases.
//
// The tag message records the package version id, the package type and the
// resolved dependencies of the release as a [TagMessage]. The resolvers in
// pkg/deps/resolvers read it back to find what a tag installs.
package release
