package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docsite/internal/stream"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*stream.Stream, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	return decodeMarkdown(src), nil
}

// decodeMarkdown turns each top-level block into one paragraph. List items
// become one paragraph each; image destinations serve as both id and locator.
func decodeMarkdown(src []byte) *stream.Stream {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	s := stream.New()

	add := func(depth int, n ast.Node) {
		t, images := blockContent(n, src)
		for _, img := range images {
			s.AddImage(img, img)
		}
		s.Append(depth, t, images)
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			add(node.Level, node)
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				add(0, item)
			}
		case *ast.HTMLBlock, *ast.ThematicBreak:
			// Raw markup and rules carry no content.
		default:
			add(0, node)
		}
	}
	return s
}

func blockContent(n ast.Node, src []byte) (string, []string) {
	var buf bytes.Buffer
	var images []string
	if isCodeBlock(n) {
		writeLines(&buf, n, src)
	} else {
		collectInline(n, src, &buf, &images)
	}
	return strings.TrimSpace(buf.String()), images
}

func collectInline(n ast.Node, src []byte, buf *bytes.Buffer, images *[]string) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.URL(src))
		case *ast.Image:
			// Alt text is not paragraph text.
			*images = append(*images, string(node.Destination))
		case *ast.RawHTML:
		default:
			if c.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			if isCodeBlock(c) {
				writeLines(buf, c, src)
				continue
			}
			collectInline(c, src, buf, images)
		}
	}
}

func isCodeBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return true
	}
	return false
}

func writeLines(buf *bytes.Buffer, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
}
