// Package graph holds the diagram topology extracted from a natural-language
// request: flat groups, components that may sit inside one group, and
// directed relationships between components.
//
// A Model is built once per request (usually by Decode on LLM output) and is
// treated as immutable afterwards.
package graph

import (
	"encoding/json"
)

// DefaultType is the style-table key used when a group or relationship omits its type.
const DefaultType = "default"

// Group is a visual container such as a VPC or datacenter. Groups do not nest.
type Group struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Component is a node. ParentGroup is nil for orphan components.
type Component struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Type        string  `json:"type"`
	ParentGroup *string `json:"parent_group"`
}

// Parent returns the parent group id, or "" for orphans.
func (c Component) Parent() string {
	if c.ParentGroup == nil {
		return ""
	}
	return *c.ParentGroup
}

// Relationship is a directed edge between two component ids.
type Relationship struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Type   string `json:"type"`
}

// Model is the whole diagram.
type Model struct {
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Groups        []Group        `json:"groups"`
	Components    []Component    `json:"components"`
	Relationships []Relationship `json:"relationships"`
}

// JSON returns the compact encoding handed to LLM prompts as graph context.
func (m *Model) JSON() string {
	data, err := json.Marshal(m)
	if err != nil {
		// Model only holds strings and slices of them
		return "{}"
	}
	return string(data)
}

// Stats returns group, component and relationship counts for logging.
func (m *Model) Stats() (groups, components, relationships int) {
	return len(m.Groups), len(m.Components), len(m.Relationships)
}

// StringPtr is a convenience for building components with a parent group.
func StringPtr(s string) *string {
	return &s
}
