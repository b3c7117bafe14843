// Package script implements graph-construction scripts: YAML documents of
// stanzas, each pairing a tree-sitter query with node, attribute and edge
// directives that are applied to every match.
//
// A script looks like:
//
//	globals: [global_filename, global_row]
//	shorthands:
//	  position:
//	    param: node
//	    attrs:
//	      start_row: (plus $global_row (start-row $node))
//	stanzas:
//	  - name: methods
//	    query: |
//	      (class_definition
//	        body: (block (function_definition name: (identifier) @name) @fn)) @class
//	    nodes: [class, fn]
//	    attrs:
//	      - node: fn
//	        set: {name: (source-text @name), kind: function}
//	        apply: [position]
//	    edges:
//	      - {from: class, to: fn, set: {kind: method}}
//
// A query that names fields contains ": ", which YAML reads as a mapping
// inside a plain scalar, so such queries must be block or quoted scalars.
//
// Scalars are literal values unless they start with "(", "@" or "$", in
// which case they are expressions over captures, variables and the
// functions listed in functions.go.
package script

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type document struct {
	Globals    []string                `yaml:"globals"`
	Shorthands map[string]shorthandDoc `yaml:"shorthands"`
	Stanzas    []stanzaDoc             `yaml:"stanzas"`
}

type shorthandDoc struct {
	Param string         `yaml:"param"`
	Attrs map[string]any `yaml:"attrs"`
}

type stanzaDoc struct {
	Name  string    `yaml:"name"`
	Query string    `yaml:"query"`
	Nodes []string  `yaml:"nodes"`
	Attrs []attrDoc `yaml:"attrs"`
	Edges []edgeDoc `yaml:"edges"`
}

type attrDoc struct {
	Node  string         `yaml:"node"`
	When  []string       `yaml:"when"`
	Set   map[string]any `yaml:"set"`
	Apply []string       `yaml:"apply"`
}

type edgeDoc struct {
	From string         `yaml:"from"`
	To   string         `yaml:"to"`
	When []string       `yaml:"when"`
	Set  map[string]any `yaml:"set"`
}

func decode(text string) (*document, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(doc.Stanzas) == 0 {
		return nil, fmt.Errorf("script has no stanzas")
	}
	return &doc, nil
}
