// Package registry provides the central "glue" for node kinds.
//
// The Registry maps the kind strings used in scene files and by
// Scene.CreateNode (e.g. "transform") to the Go code that implements the
// kind: its parameter specs, how many inputs it accepts and a constructor for
// its Operator. Modules under modules/ populate it at startup through the
// Module interface.
//
// During application startup, the registry is populated and then validated so
// that a parameter spec whose default cannot be represented as an expression
// value is reported before any scene is built.
package registry
