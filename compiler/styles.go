package compiler

import (
	"sort"
	"strings"
)

// Style tables are closed: any type not listed resolves to the "default" entry.

var componentStyles = map[string]string{
	"service":    `shape=box, style=rounded, fillcolor="#D6EAF8"`,
	"database":   `shape=cylinder, fillcolor="#D1F2EB"`,
	"api":        `shape=diamond, fillcolor="#FADBD8"`,
	"frontend":   `shape=component, fillcolor="#FDEDEC"`,
	"router":     `shape=Mdiamond, fillcolor="#E8DAEF"`,
	"switch":     `shape=box, style=rounded, fillcolor="#FCF3CF"`,
	"server":     `shape=box, style=solid, fillcolor="#EDF6E5"`,
	"client":     `shape=ellipse, fillcolor="#EBDEF0"`,
	"host":       `shape=box, style=rounded, fillcolor="#D5DBDB"`,
	"vm":         `shape=box, style=dashed, fillcolor="#D5DBDB"`,
	"hypervisor": `shape=box, style=solid, fillcolor="#AEB6BF"`,
	"queue":      `shape=box, style=rounded, fillcolor="#F8C471"`,
	"default":    `shape=box, fillcolor="#ECF0F1"`,
}

var relationshipStyles = map[string]string{
	"api_call":           `style=solid, arrowhead=vee, color="#2980B9"`,
	"data_flow":          `style=dashed, arrowhead=normal, color="#1ABC9C"`,
	"dependency":         `style=dotted, arrowhead=vee, color="#95A5A6"`,
	"network_connection": `style=solid, arrowhead=normal, color="#34495E"`,
	"vpn_link":           `style=bold, arrowhead=none, color="#E74C3C", label="VPN"`,
	"inheritance":        `style=dashed, arrowhead=empty, color="#9B59B6"`,
	"default":            `style=solid, arrowhead=vee, color="#2C3E50"`,
}

// Group attributes are emitted one per line; {label} is substituted.
var groupStyles = map[string][]string{
	"datacenter":   {`label="{label}"`, `style=dashed`, `bgcolor="#F4F6F6"`},
	"cloud_region": {`label="{label}"`, `style=rounded`, `bgcolor="#EBF5FB"`},
	"vpc":          {`label="{label}"`, `style=rounded`, `bgcolor="#FDF2E9"`},
	"subnet":       {`label="{label}"`, `style=dotted`, `bgcolor="#F9E79F"`},
	"on_prem_env":  {`label="{label}"`, `style=solid`, `bgcolor="#D5DBDB"`},
	"host_machine": {`label="{label}"`, `style=rounded`, `bgcolor="#E8F8F5"`},
	"default":      {`label="{label}"`, `style=dotted`, `bgcolor="#EEEEEE"`},
}

// StyleForComponent returns the node attribute string for a component type.
func StyleForComponent(typ string) string {
	if s, ok := componentStyles[typ]; ok {
		return s
	}
	return componentStyles["default"]
}

// StyleForRelationship returns the edge attribute string for a relationship type.
func StyleForRelationship(typ string) string {
	if s, ok := relationshipStyles[typ]; ok {
		return s
	}
	return relationshipStyles["default"]
}

// StyleForGroup returns the cluster attributes for a group type with the
// label filled in and escaped.
func StyleForGroup(typ, label string) []string {
	tmpl, ok := groupStyles[typ]
	if !ok {
		tmpl = groupStyles["default"]
	}
	attrs := make([]string, len(tmpl))
	for i, a := range tmpl {
		attrs[i] = strings.ReplaceAll(a, "{label}", escapeLabel(label))
	}
	return attrs
}

// StyleTable names one of the three lookup tables for listing purposes.
type StyleTable string

const (
	TableComponent    StyleTable = "component"
	TableRelationship StyleTable = "relationship"
	TableGroup        StyleTable = "group"
)

// Entry is one row of a style table.
type Entry struct {
	Type  string `json:"type" yaml:"type"`
	Style string `json:"style" yaml:"style"`
}

// Entries lists a table sorted by type, with "default" last.
func Entries(table StyleTable) []Entry {
	var entries []Entry
	switch table {
	case TableComponent:
		for k, v := range componentStyles {
			entries = append(entries, Entry{Type: k, Style: v})
		}
	case TableRelationship:
		for k, v := range relationshipStyles {
			entries = append(entries, Entry{Type: k, Style: v})
		}
	case TableGroup:
		for k, v := range groupStyles {
			entries = append(entries, Entry{Type: k, Style: strings.Join(v, "; ")})
		}
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Type, entries[j].Type
		if a == "default" || b == "default" {
			return b == "default" && a != "default"
		}
		return a < b
	})
}
