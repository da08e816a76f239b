// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for the paths
that expressions use to reference other nodes of a scene.

The format is a slash-separated sequence of segments, e.g. `geo1/xform1/tx`,
`../points1` or `/obj/cam`. A leading slash makes the path absolute (resolved
from the scene root), otherwise it is resolved from the node that owns the
expression. `..` climbs to the parent, `.` names the current node, and a
leading `#N` jumps straight to the node with graph id N. Paths that start with
an id are immutable: renames anywhere in the scene cannot change their target.

This package enforces the path schema and centralizes all formatting and
parsing logic. Resolving a path against a live scene is the job of the
exprdeps and scene packages.
*/
package nodeid
