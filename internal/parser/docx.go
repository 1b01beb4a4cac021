package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docsite/internal/stream"
)

const (
	docxRelsPart = "word/_rels/document.xml.rels"
	imageRelType = "/image"
)

// DOCXParser handles .docx files.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*stream.Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	s := stream.New()
	rels, err := docxImageRels(data)
	if err != nil {
		return nil, err
	}
	for id, loc := range rels {
		s.AddImage(id, loc)
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text, images := docxParagraphContent(para)
		s.Append(docxHeadingLevel(para), text, images)
	}
	return s, nil
}

// docxHeadingLevel maps a paragraph style to a heading depth. Localized
// Word templates use bare numeric style ids ("1".."4") for headings.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.TrimSpace(para.Properties.Style.Val))
	style = strings.TrimSpace(strings.TrimPrefix(style, "heading"))
	level, err := strconv.Atoi(style)
	if err != nil || level < 1 || level > 4 {
		return 0
	}
	return level
}

func docxParagraphContent(para *docx.Paragraph) (string, []string) {
	var buf strings.Builder
	var images []string
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			images = append(images, docxRunContent(c, &buf)...)
		case *docx.Hyperlink:
			images = append(images, docxRunContent(&c.Run, &buf)...)
		}
	}
	return strings.TrimSpace(buf.String()), images
}

func docxRunContent(run *docx.Run, buf *strings.Builder) []string {
	var images []string
	for _, rc := range run.Children {
		switch c := rc.(type) {
		case *docx.Text:
			buf.WriteString(c.Text)
		case *docx.Drawing:
			if id := docxBlipID(c); id != "" {
				images = append(images, id)
			}
		}
	}
	return images
}

func docxBlipID(d *docx.Drawing) string {
	var g *docx.AGraphic
	switch {
	case d.Inline != nil:
		g = d.Inline.Graphic
	case d.Anchor != nil:
		g = d.Anchor.Graphic
	}
	if g == nil || g.GraphicData == nil || g.GraphicData.Pic == nil || g.GraphicData.Pic.BlipFill == nil {
		return ""
	}
	return g.GraphicData.Pic.BlipFill.Blip.Embed
}

// docxImageRels reads the document relationship table and returns image
// relationship ids mapped to their zip part names. External targets keep
// their URL.
func docxImageRels(data []byte) (map[string]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}
	f, err := zr.Open(docxRelsPart)
	if err != nil {
		// A document without relationships simply has no images.
		return map[string]string{}, nil
	}
	defer f.Close()

	root, err := xmlquery.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", docxRelsPart, err)
	}

	rels := make(map[string]string)
	for _, n := range xmlquery.Find(root, "//*[local-name()='Relationship']") {
		if !strings.HasSuffix(n.SelectAttr("Type"), imageRelType) {
			continue
		}
		id, target := n.SelectAttr("Id"), n.SelectAttr("Target")
		if id == "" || target == "" {
			continue
		}
		if strings.EqualFold(n.SelectAttr("TargetMode"), "External") {
			rels[id] = target
			continue
		}
		if strings.HasPrefix(target, "/") {
			rels[id] = strings.TrimPrefix(target, "/")
		} else {
			rels[id] = path.Join("word", target)
		}
	}
	return rels, nil
}
