package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/dgallion1/docsite/internal/stream"
)

// HTMLParser handles HTML files. Block text keeps its inline formatting as
// Markdown so links and emphasis survive into item bodies.
type HTMLParser struct {
	conv *converter.Converter
}

func (p *HTMLParser) mdConverter() *converter.Converter {
	if p.conv == nil {
		p.conv = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	}
	return p.conv
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*stream.Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	// Honors <meta charset> and BOMs; defaults to UTF-8 sniffing.
	cr, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect html charset: %w", err)
	}
	doc, err := html.Parse(cr)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	s := stream.New()
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return nil
			case "h1", "h2", "h3", "h4", "h5", "h6":
				images := imageSources(n)
				addImages(s, images)
				s.Append(headingLevel(n.Data), textContent(n), images)
				return nil
			case "p", "li", "blockquote", "td", "th", "figure", "pre":
				images := imageSources(n)
				addImages(s, images)
				text, err := p.inlineMarkdown(n)
				if err != nil {
					return err
				}
				s.Append(0, text, images)
				return nil
			case "img":
				images := imageSources(n)
				addImages(s, images)
				s.Append(0, "", images)
				return nil
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return s, nil
}

// inlineMarkdown renders the children of n as Markdown. Images are removed
// from the tree first; callers collect them with imageSources.
func (p *HTMLParser) inlineMarkdown(n *html.Node) (string, error) {
	removeImages(n)
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html block: %w", err)
		}
	}
	md, err := p.mdConverter().ConvertString(buf.String())
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func removeImages(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.Data == "img" {
			n.RemoveChild(c)
		} else {
			removeImages(c)
		}
		c = next
	}
}

func addImages(s *stream.Stream, images []string) {
	for _, img := range images {
		s.AddImage(img, img)
	}
}

func imageSources(n *html.Node) []string {
	var out []string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, a := range n.Attr {
				if a.Key == "src" && strings.TrimSpace(a.Val) != "" {
					out = append(out, strings.TrimSpace(a.Val))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return stream.Dedup(out)
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
