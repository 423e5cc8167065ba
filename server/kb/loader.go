package kb

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// LoadDocument reads a knowledge base file into a Document. Markdown files
// are flattened to plain text so chunk boundaries see prose, not syntax;
// anything else is taken verbatim. The document id is the file name without
// its extension, which keeps re-ingestion of the same file idempotent.
func LoadDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.Wrapf(err, "read document %s", path)
	}

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	id := strings.TrimSuffix(base, filepath.Ext(base))

	text := string(raw)
	if ext == ".md" || ext == ".markdown" {
		text = MarkdownToText(raw)
	}

	return Document{
		ID:    id,
		Title: id,
		Text:  text,
		Metadata: map[string]string{
			"source": path,
		},
	}, nil
}

// LoadDirectory loads every .md and .txt file directly under dir.
func LoadDirectory(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read knowledge base dir %s", dir)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".markdown", ".txt":
		default:
			continue
		}
		doc, err := LoadDocument(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// MarkdownToText renders markdown source as plain text: inline markup is
// stripped, block structure becomes blank-line separated paragraphs, and
// code block contents survive as-is.
func MarkdownToText(source []byte) string {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 {
				ensureSuffix(&buf, "\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.AutoLink:
			buf.Write(node.URL(source))
		case *ast.CodeBlock:
			writeLines(&buf, source, node)
		case *ast.FencedCodeBlock:
			writeLines(&buf, source, node)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

func writeLines(buf *bytes.Buffer, source []byte, node ast.Node) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		buf.Write(segment.Value(source))
	}
}

func ensureSuffix(buf *bytes.Buffer, suffix string) {
	if !bytes.HasSuffix(buf.Bytes(), []byte(suffix)) {
		buf.WriteString(suffix)
	}
}
