// Package compiler turns a graph.Model into Graphviz DOT source.
//
// Compile is pure and total: it never fails for a decoded Model, and the same
// Model always yields byte-identical output. References are not checked.
// Components whose parent_group names no declared group land in a bucket no
// group block reads, so they do not appear in the output; only components
// with no parent at all are emitted as orphans.
package compiler

import (
	"strings"

	"github.com/kenjpais/diagram-generator/graph"
)

const indent = "    "

// Compile renders the model as a DOT digraph.
func Compile(m *graph.Model) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line("digraph G {")
	line(indent + "# Graph-level attributes")
	line(indent + "graph [rankdir=TB, nodesep=1, ranksep=1.5, compound=true];")
	line(indent + "node [style=filled];")
	line(indent + "edge [fontsize=10];")
	line("")

	byGroup := make(map[string][]graph.Component)
	var orphans []graph.Component
	for _, c := range m.Components {
		if p := c.Parent(); p != "" {
			byGroup[p] = append(byGroup[p], c)
		} else {
			orphans = append(orphans, c)
		}
	}

	line(indent + "# Groups (Subgraphs)")
	for _, g := range m.Groups {
		line(indent + `subgraph "cluster_` + g.ID + `" {`)
		for _, attr := range StyleForGroup(g.Type, g.Label) {
			line(indent + indent + attr + ";")
		}
		for _, c := range byGroup[g.ID] {
			line(indent + indent + node(c))
		}
		line(indent + "}")
	}

	if len(orphans) > 0 {
		line("")
		line(indent + "# Orphan Components")
		for _, c := range orphans {
			line(indent + node(c))
		}
	}

	line("")
	line(indent + "# Relationships (Edges)")
	for _, r := range m.Relationships {
		line(indent + r.Source + " -> " + r.Target + ` [label="` + escapeLabel(r.Label) + `", ` + StyleForRelationship(r.Type) + "];")
	}

	b.WriteString("}")
	return b.String()
}

func node(c graph.Component) string {
	return c.ID + ` [label="` + escapeLabel(c.Label) + `", ` + StyleForComponent(c.Type) + "];"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escapeLabel makes s safe inside a double-quoted DOT string.
func escapeLabel(s string) string {
	return labelEscaper.Replace(s)
}
