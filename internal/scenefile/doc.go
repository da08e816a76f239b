// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package scenefile loads scenes described in HCL.
//
// Why have a scene file?
//
// The engine itself is driven through the scene API, which is what an editor
// talks to. The command line and the tests need a way to describe a whole
// scene up front: nodes, their parameters and expressions, and the wiring of
// their inputs. A scene file is that description. It is a harness format for
// building scenes, not a persistence format.
//
//	fps = 24
//
//	node "value" "A" {
//	  value = 2
//	}
//
//	node "transform" "geo1" {
//	  inputs = ["A"]
//	  tx     = expr("$A/value * 3")
//	  ty     = expr("sin($T)")
//
//	  node "points" "pts" {
//	    count = 8
//	  }
//	}
//
// Block labels are the node kind and name. Every attribute other than
// `inputs` sets the parameter of the same name: literal values are assigned,
// `expr("...")` installs an expression. `inputs` lists the nodes plugged into
// the input slots, as paths relative to the node's parent or absolute paths.
//
// All files found under a directory are merged into one scene. Nodes are
// created first and inputs are wired afterwards, so files and blocks may
// reference each other in any order.
package scenefile
