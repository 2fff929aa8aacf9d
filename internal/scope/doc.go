// Package scope resolves the environment, working directory and shell that a
// single task runs with.
//
// Four levels are layered outer to inner: global, node, matrix cell, task.
// Environment maps are unioned with the inner level winning on key
// collisions; working directory and shell are replaced as whole values by the
// innermost level that sets them.
package scope
