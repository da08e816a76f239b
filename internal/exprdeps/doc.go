// Package exprdeps turns the references an expression discovered into real
// graph edges and keeps those edges valid while the scene changes.
//
// # Why exprdeps Exists
//
// A compiled expression only knows paths as the user typed them. The graph
// only knows ids. Between the two sits a moving scene: targets are created
// after the expression that names them, renamed while referenced, deleted.
// This package owns that gap:
//
//	expr.Program ──References()──▶ DependenciesController.Update
//	                                  │
//	        ┌─────────────────────────┼──────────────────────────┐
//	        ▼                         ▼                          ▼
//	   resolved: edge          cyclic: no edge,           unresolved: handed to
//	   target -> owner,        ErrCyclicGraphDetected     MissingReferencesController,
//	   rename hooks on         on the dependency          retried on every node
//	   every named segment                                creation or rename
//
// Every reference becomes a MethodDependency holding a DecomposedPath: the
// path split into segments, each named segment bound to the id of the node it
// resolved to. A rename of any bound node rewrites that segment in place, so
// the path text follows the scene without parsing the expression again and
// without touching the edge.
//
// Failures are state, never panics: a dependency is either resolved, pending
// (ErrUnresolved) or errored (ErrCyclicGraphDetected), and the owner decides
// what to show.
package exprdeps
