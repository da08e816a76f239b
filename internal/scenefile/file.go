// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the HCL shape of a scene file and the parsing step that
// turns every file of a directory into a single Document.
package scenefile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/cookgraph/internal/ctxlog"
	"github.com/specialistvlad/cookgraph/internal/fsutil"
)

// Extension is the suffix of scene files.
const Extension = ".hcl"

// hclSceneFile represents the top-level structure of a scene file for decoding.
type hclSceneFile struct {
	FPS   *float64   `hcl:"fps,optional"`
	Nodes []*hclNode `hcl:"node,block"`
}

// hclNode is one node block. Remain holds the parameter attributes.
type hclNode struct {
	Kind   string     `hcl:"kind,label"`
	Name   string     `hcl:"name,label"`
	Inputs []string   `hcl:"inputs,optional"`
	Nodes  []*hclNode `hcl:"node,block"`
	Remain hcl.Body   `hcl:",remain"`

	DefRange hcl.Range `hcl:",def_range"`
}

// Document is the merged content of one or more scene files.
type Document struct {
	// FPS is the frame rate declared by the files, 0 when none declares one.
	FPS   float64
	Files []string

	nodes []*hclNode
}

// NodeCount is the number of node blocks, nested ones included.
func (d *Document) NodeCount() int {
	var count func([]*hclNode) int
	count = func(nodes []*hclNode) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Nodes)
		}
		return n
	}
	return count(d.nodes)
}

// Load finds every scene file under path (a file or a directory) and merges
// them into a Document. Files are read in lexical order.
func Load(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scene files from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to find scene files in %s: %w", path, err)
	}

	doc := &Document{Files: files}
	if len(files) == 0 {
		logger.Warn("No scene files found in path, returning empty scene", "path", path)
		return doc, nil
	}

	parser := hclparse.NewParser()
	for _, file := range files {
		if err := doc.parseFile(parser, file); err != nil {
			return nil, err
		}
	}
	logger.Debug("Scene files loaded.", "files", len(files), "nodes", doc.NodeCount())
	return doc, nil
}

// Parse reads a single scene from src. filename is only used in diagnostics.
func Parse(filename string, src []byte) (*Document, error) {
	doc := &Document{Files: []string{filename}}
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	if err := doc.decode(hclFile, filename); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) parseFile(parser *hclparse.Parser, filePath string) error {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
	}
	return d.decode(hclFile, filePath)
}

func (d *Document) decode(hclFile *hcl.File, filePath string) error {
	var parsed hclSceneFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filePath, diags)
	}
	if parsed.FPS != nil {
		if *parsed.FPS <= 0 {
			return fmt.Errorf("%s: fps must be positive, got %v", filePath, *parsed.FPS)
		}
		if d.FPS != 0 && d.FPS != *parsed.FPS {
			return fmt.Errorf("%s: fps %v conflicts with %v declared earlier", filePath, *parsed.FPS, d.FPS)
		}
		d.FPS = *parsed.FPS
	}
	d.nodes = append(d.nodes, parsed.Nodes...)
	return nil
}
