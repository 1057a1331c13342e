package validate

import (
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// Parser validates against the full DOT grammar. The parser's error message
// is passed through unchanged so the corrector sees what the grammar saw.
type Parser struct{}

func (Parser) Validate(src string) (res Result) {
	if strings.TrimSpace(src) == "" {
		return Invalid("empty diagram source")
	}

	defer func() {
		if r := recover(); r != nil {
			res = Invalid(fmt.Sprintf("Validation error: %v", r))
		}
	}()

	if _, err := gographviz.ParseString(src); err != nil {
		return Invalid(err.Error())
	}
	return Ok
}
