package graph

import "fmt"

// Lint returns non-fatal observations about referential integrity.
// The compiler deliberately passes these through; callers only log them.
func (m *Model) Lint() []string {
	var notes []string

	groups := make(map[string]bool, len(m.Groups))
	for _, g := range m.Groups {
		if groups[g.ID] {
			notes = append(notes, fmt.Sprintf("duplicate group id %q", g.ID))
		}
		groups[g.ID] = true
	}

	components := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		if components[c.ID] {
			notes = append(notes, fmt.Sprintf("duplicate component id %q", c.ID))
		}
		components[c.ID] = true
		if p := c.Parent(); p != "" && !groups[p] {
			notes = append(notes, fmt.Sprintf("component %q references unknown group %q and will not be drawn", c.ID, p))
		}
	}

	for i, r := range m.Relationships {
		if !components[r.Source] {
			notes = append(notes, fmt.Sprintf("relationship %d source %q is not a component", i, r.Source))
		}
		if !components[r.Target] {
			notes = append(notes, fmt.Sprintf("relationship %d target %q is not a component", i, r.Target))
		}
	}
	return notes
}
