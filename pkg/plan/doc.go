// Package plan turns a flattened dependency list into an install plan.
//
// A [Plan] is built from declared dependencies with [Build], or from an
// already flattened list with [New]. [Plan.Gate] decides per step whether
// the target needs the install, and [Plan.Execute] runs the steps in order
// through the project's installer.
//
// Plans render as text, JSON, YAML, TOML or a Graphviz chart, and JSON
// plans can be read back with [ReadJSON] and executed later.
//
// [Snapshot] is a target backed by a TOML list of installed packages and
// [Recorder] an installer that only records calls. Together they give a
// dry run of an install against a known environment.
package plan
