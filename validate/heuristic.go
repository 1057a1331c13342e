package validate

import (
	"fmt"
	"strings"
)

// Heuristic is the dependency-free fallback. It only checks that the source
// opens with digraph/graph and that braces outside string literals balance,
// so it is much weaker than Parser.
type Heuristic struct{}

func (Heuristic) Validate(src string) Result {
	code := strings.TrimSpace(src)

	if !strings.HasPrefix(code, "digraph") && !strings.HasPrefix(code, "graph") {
		return Invalid("Diagram must start with 'digraph' or 'graph' keyword")
	}

	depth := 0
	inString := false
	escaped := false
	for _, ch := range code {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth < 0 {
				return Invalid("Closing brace without matching opening brace")
			}
		}
	}

	if depth != 0 {
		return Invalid(fmt.Sprintf("Unbalanced braces: %d unclosed opening brace(s)", depth))
	}
	if !strings.Contains(code, "{") {
		return Invalid("Missing opening brace")
	}
	if !strings.Contains(code, "}") {
		return Invalid("Missing closing brace")
	}
	return Ok
}
