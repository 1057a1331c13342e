// Package docinput reads the optional context document that accompanies a
// diagram request, and splits REPL lines into request text and flags.
package docinput

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/kenjpais/diagram-generator/errors"
)

const (
	// MaxLines is the line count above which a document is chunked
	MaxLines = 100000
	// ChunkSize is the chunk length in runes
	ChunkSize = 100000
)

// SupportedExtensions lists the document types that can be attached
var SupportedExtensions = []string{".md", ".txt"}

// Line is a parsed REPL input line
type Line struct {
	Request  string
	Filename string
}

// ParseLine extracts --filename <path> (or --filename=<path>) from a line.
// Quotes are honoured; a line with unbalanced quotes falls back to a plain
// whitespace split so apostrophes in prose do not break parsing.
func ParseLine(line string) (Line, error) {
	args, err := shellquote.Split(line)
	if err != nil {
		args = strings.Fields(line)
	}

	var out Line
	var words []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--filename":
			if i+1 >= len(args) {
				return Line{}, errors.NewInvalidRequestError("--filename requires a path")
			}
			out.Filename = args[i+1]
			i++
		case strings.HasPrefix(arg, "--filename="):
			out.Filename = strings.TrimPrefix(arg, "--filename=")
			if out.Filename == "" {
				return Line{}, errors.NewInvalidRequestError("--filename requires a path")
			}
		default:
			words = append(words, arg)
		}
	}
	out.Request = strings.TrimSpace(strings.Join(words, " "))
	return out, nil
}

// Document is a loaded context document
type Document struct {
	Path    string
	Content string
	Lines   int
	Chunks  int // 1 unless the document exceeded MaxLines
}

// ReadDocument loads a .md or .txt file. Documents over MaxLines lines are
// split into ChunkSize pieces joined with chunk markers.
func ReadDocument(path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supported(ext) {
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unsupported file type %q for %s", ext, path),
			"only .md and .txt documents are supported",
		)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "document %s", path)
	}
	if info.IsDir() {
		return nil, errors.NewInvalidRequestError("document %s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read document %s", path)
	}

	text := string(data)
	doc := &Document{Path: path, Content: text, Lines: countLines(text), Chunks: 1}
	if doc.Lines > MaxLines {
		chunks := Chunk(text, ChunkSize)
		doc.Chunks = len(chunks)
		doc.Content = JoinChunks(chunks)
	}
	return doc, nil
}

// Chunk splits text into pieces of at most size runes
func Chunk(text string, size int) []string {
	if size <= 0 || text == "" {
		return []string{text}
	}
	r := []rune(text)
	var chunks []string
	for i := 0; i < len(r); i += size {
		end := i + size
		if end > len(r) {
			end = len(r)
		}
		chunks = append(chunks, string(r[i:end]))
	}
	return chunks
}

// JoinChunks concatenates chunks, each preceded by a "--- chunk i/n ---" marker
func JoinChunks(chunks []string) string {
	if len(chunks) == 1 {
		return chunks[0]
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- chunk %d/%d ---\n", i+1, len(chunks))
		b.WriteString(c)
	}
	return b.String()
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func supported(ext string) bool {
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
