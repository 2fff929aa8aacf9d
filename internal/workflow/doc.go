// Package workflow holds the declarative workflow model and its YAML and HCL
// loaders.
//
// A workflow names nodes. Each node is a chain of scripts with optional
// dependencies on other nodes (pre), an optional parameterization matrix and
// env/workdir/shell overrides. Nodes keep the order they were declared in,
// which later fixes the order of invocations inside a stage.
package workflow
