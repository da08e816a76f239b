// Package expr implements the expression language that parameters use to
// compute their value from other nodes of the scene.
//
// # Syntax
//
// Expressions use HCL's native expression syntax (arithmetic, comparison,
// logic, conditionals, function calls, strings) extended with a reference
// sigil:
//
//	$A/value * 3              value of parameter "value" on sibling node A
//	$../geo1/tx + $F          parent-relative path plus the current frame
//	centroid($../points1, 0)  x of the centroid of another node's output
//	ch("../geo1/ty")          same as $../geo1/ty with a quoted path
//	$#12/value                id-anchored reference, immune to renames
//
// `$F`, `$FPS`, `$T`, `$CEX`, `$CEY`, `$CEZ`, `$OS` and `$CH` are reserved
// context names (frame, frame rate, time in seconds, centroid of the owner's
// first input, owner name, parameter name); they never become dependencies.
//
// # Pipeline
//
//  1. ParseExpression splits the source into chunks (text, quoted strings,
//     references), rewrites references into calls HCL understands and parses
//     the result with hclsyntax. Failures are kept on the ParsedTree.
//  2. FunctionGenerator walks the AST node kind by node kind and builds a
//     Program: a closed tree of evaluation ops plus the ordered list of
//     References it discovered.
//  3. Program.Eval runs the op tree against an Env, asking the Env's Resolver
//     for every reference.
//
// Chunks stay attached to the tree so a renamed target can be written back
// into the source (ParsedTree.WithChunkPath) without parsing it again.
package expr
