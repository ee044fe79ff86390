package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark.
type MarkdownExtractor struct{}

func (p *MarkdownExtractor) Extract(r io.Reader, filename string) (*Extraction, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	// Flatten the document to plain text: headings become their own
	// lines, everything else is block text separated by blank lines.
	var out strings.Builder
	var docTitle string

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if docTitle == "" && node.Level == 1 {
				docTitle = title
			}
			if title != "" {
				if out.Len() > 0 {
					out.WriteString("\n\n")
				}
				out.WriteString(title)
			}
		default:
			t := blockText(n, src)
			if t != "" {
				if out.Len() > 0 {
					out.WriteString("\n\n")
				}
				out.WriteString(t)
			}
		}
	}

	ex := singleSection(out.String(), filename)
	if docTitle != "" {
		ex.Meta.Title = docTitle
	}
	return ex, nil
}

// blockText gets the text content of a goldmark AST node. A block's
// Lines() and its inline Text children reference the same source
// segments, so a node with lines must not also be walked for inline
// text or every paragraph comes out twice.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(blockText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
