// Package site assembles a SiteModel from a classified paragraph stream.
package site

import (
	"fmt"
	"maps"
	"strings"

	"github.com/dgallion1/docsite/internal/classify"
	"github.com/dgallion1/docsite/internal/segment"
	"github.com/dgallion1/docsite/internal/sitemodel"
	"github.com/dgallion1/docsite/internal/slug"
	"github.com/dgallion1/docsite/internal/stream"
)

// LineBreak joins multi-line header and footer text.
const LineBreak = "<br>"

// The news section keeps a fixed slug so existing links survive renames.
const (
	newsKey  = "новости"
	newsSlug = "news"
)

// Build classifies s and assembles the site. It fails only with
// classify.ErrEmptyStream.
func Build(s *stream.Stream) (*sitemodel.SiteModel, error) {
	res, err := classify.Classify(s.Paragraphs)
	if err != nil {
		return nil, err
	}
	m := Assemble(res)
	if len(s.Images) > 0 {
		m.Images = maps.Clone(s.Images)
	}
	return m, nil
}

// Assemble turns classifier output into a SiteModel.
func Assemble(res *classify.Result) *sitemodel.SiteModel {
	lines := nonEmpty(res.TitleLines)

	m := &sitemodel.SiteModel{
		HomeTitle:   res.HomeTitle,
		SiteTitle:   res.HomeTitle,
		FooterText:  strings.Join(nonEmpty(res.FooterLines), LineBreak),
		HomeContent: append([]stream.Paragraph(nil), res.Content...),
		PreviewKeys: append([]string(nil), res.PreviewKeys...),
	}
	if len(lines) > 0 {
		m.SiteTitle = lines[0]
		m.HeaderSub = strings.Join(lines[1:], LineBreak)
	}
	m.HeaderMain = m.SiteTitle
	if len(res.TitleImages) > 0 {
		m.LogoImage = res.TitleImages[0]
	}

	m.Sections = make([]sitemodel.MenuSection, 0, len(res.Menu))
	for i, name := range res.Menu {
		key := slug.Normalize(name)
		title, ok := res.Title(key)
		if !ok {
			title = name
		}
		sectionSlug := SectionSlug(key, title, i+1)

		var paragraphs []stream.Paragraph
		if sec, ok := res.Section(key); ok {
			paragraphs = sec.Paragraphs
		}
		m.Sections = append(m.Sections, sitemodel.MenuSection{
			Title: title,
			Slug:  sectionSlug,
			Items: segment.Items(title, sectionSlug, paragraphs),
		})
	}
	return m
}

// SectionSlug derives the slug of the menu section at 1-based position n.
func SectionSlug(key, title string, n int) string {
	if key == newsKey {
		return newsSlug
	}
	return slug.Make(title, fmt.Sprintf("section-%d", n))
}

func nonEmpty(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
