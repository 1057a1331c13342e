// Package extract pulls clean DOT source or JSON out of free-form LLM replies.
//
// Neither function returns an error or panics: malformed input degrades to a
// best-effort string, or "" for JSON when nothing parses. Callers treat ""
// as an extraction failure.
//
// Precedence for Code:
//  1. the first fenced block tagged with the target language (or an alias),
//     if its body is non-empty
//  2. the first fenced block of any kind; its first line is dropped unless it
//     opens a graph (digraph, graph, strict, "{" or "["). A fence that opens
//     and closes on one line drops only its first word in that case.
//  3. the whole trimmed reply
//
// then known narrative prefixes are removed from the start of the result.
//
// Precedence for JSON, where every candidate must parse or is skipped:
//  1. the whole trimmed reply
//  2. fenced blocks tagged json, in order
//  3. any fenced block, in order
//  4. the first balanced {...} span, scanning left to right
package extract

import (
	"encoding/json"
	"strings"
	"unicode"
)

// LanguageDOT is the fence tag for Graphviz source.
const LanguageDOT = "dot"

var languageAliases = map[string][]string{
	LanguageDOT: {"dot", "graphviz", "gv"},
	"json":      {"json"},
}

// Prefixes LLMs put in front of code even inside fences.
var narrativePrefixes = []string{
	"Let's think step-by-step:",
	"Here's the graphviz code:",
	"Here's the code:",
	"Generated code:",
	"Here is the corrected code:",
}

var structuralOpeners = []string{"digraph", "graph", "strict", "{", "["}

// Code extracts diagram source for language (LanguageDOT when empty).
func Code(raw, language string) string {
	if language == "" {
		language = LanguageDOT
	}
	text := strings.TrimSpace(raw)
	blocks := fences(text)

	for _, f := range blocks {
		if f.hasTag(language) {
			if body := strings.TrimSpace(f.body); body != "" {
				return stripPrefixes(body)
			}
			break
		}
	}

	if len(blocks) > 0 {
		return stripPrefixes(blocks[0].untagged())
	}
	return stripPrefixes(text)
}

// JSON extracts the first parseable JSON document, or "".
func JSON(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if json.Valid([]byte(text)) {
		return text
	}

	blocks := fences(text)
	for _, f := range blocks {
		if f.hasTag("json") {
			if body := strings.TrimSpace(f.body); json.Valid([]byte(body)) {
				return body
			}
		}
	}
	for _, f := range blocks {
		if body := f.untagged(); body != "" && json.Valid([]byte(body)) {
			return body
		}
	}

	return firstObject(text)
}

func stripPrefixes(code string) string {
	code = strings.TrimSpace(code)
	for _, p := range narrativePrefixes {
		if strings.HasPrefix(code, p) {
			code = strings.TrimSpace(code[len(p):])
		}
	}
	return code
}

// fence is one ```-delimited region. info is the text on the opening line,
// or the first word of a fence that opens and closes on one line.
type fence struct {
	info    string
	body    string
	raw     string
	oneLine bool
}

func (f fence) hasTag(language string) bool {
	tag := strings.ToLower(f.info)
	for _, alias := range aliasesFor(language) {
		if tag == alias {
			return true
		}
	}
	return false
}

// untagged treats the first line as a stray language tag unless it opens a graph or JSON value.
func (f fence) untagged() string {
	if f.oneLine {
		return strings.TrimSpace(f.body)
	}
	content := strings.TrimSpace(f.raw)
	first, rest, found := strings.Cut(content, "\n")
	if opensValue(strings.TrimSpace(first)) {
		return content
	}
	if !found {
		return ""
	}
	return strings.TrimSpace(rest)
}

// opensValue reports whether line starts with a structural opener. Keywords
// must end at a word boundary, so "graphviz" is a tag and not a graph.
func opensValue(line string) bool {
	for _, opener := range structuralOpeners {
		if !strings.HasPrefix(line, opener) {
			continue
		}
		if opener == "{" || opener == "[" {
			return true
		}
		rest := line[len(opener):]
		if rest == "" || rest[0] == '{' || unicode.IsSpace(rune(rest[0])) {
			return true
		}
	}
	return false
}

func aliasesFor(language string) []string {
	language = strings.ToLower(language)
	if aliases, ok := languageAliases[language]; ok {
		return aliases
	}
	return []string{language}
}

// fences splits text into complete fenced blocks; an unterminated fence is ignored.
func fences(text string) []fence {
	var out []fence
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			return out
		}
		rest = rest[start+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			return out
		}
		inner := rest[:end]
		rest = rest[end+3:]

		info, body, found := strings.Cut(inner, "\n")
		if !found {
			out = append(out, oneLineFence(inner))
			continue
		}
		out = append(out, fence{info: strings.TrimSpace(info), body: body, raw: inner})
	}
}

// oneLineFence splits ```dot digraph G {}``` into its tag and body. A line
// that already opens a graph or JSON value has no tag.
func oneLineFence(inner string) fence {
	line := strings.TrimSpace(inner)
	f := fence{body: line, raw: inner, oneLine: true}
	if line == "" || opensValue(line) {
		return f
	}
	if i := strings.IndexFunc(line, unicode.IsSpace); i > 0 {
		f.info, f.body = line[:i], strings.TrimSpace(line[i:])
	} else {
		f.info, f.body = line, ""
	}
	return f
}

// firstObject returns the first balanced {...} span that parses as JSON.
// Braces inside string literals do not count toward depth.
func firstObject(text string) string {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return ""
}

func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
