/*
Package scene is the owning entity of a dependency graph: it holds the node
hierarchy, the parameters of every node and the expressions that tie them
together, and keeps the graph, the cooker and the expression dependencies in
step with every edit.

# Why the Scene Exists

The graph package only knows ids and edges, the scheduler only knows how to
cook dirty ids, and the exprdeps package only knows how to turn paths into
edges. Something has to own all three for one document and translate user
level edits (create a node, rename it, type an expression into a parameter)
into the right sequence of graph, cooker and dependency calls. That is the
Scene.

# Layout in the Graph

Every node and every parameter is a graph node. A parameter feeds the node it
belongs to, an input slot feeds the node it is plugged into, and a resolved
reference feeds the parameter whose expression holds it:

	[A/value] ──> [A] ──(input 0)──> [C]
	     │
	     └──> [B/value] ──> [B]      B/value = "$A/value * 3"
	[time] ──> [C/ty]    ──> [C]      C/ty    = "$F * 0.1"

Dirtying A/value therefore dirties A, B/value, B and C, and the cooker
re-cooks each of them once.

# Locking

Scene.mu only guards the hierarchy maps. It is never held while calling into
the graph's hooks, the cooker or a dependencies controller, because those call
back into the scene through the exprdeps.Tree adapter.
*/
package scene
