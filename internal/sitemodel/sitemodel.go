// Package sitemodel defines the structured site produced from a document:
// header, footer, home content and the ordered menu of sections.
package sitemodel

import (
	"github.com/dgallion1/docsite/internal/slug"
	"github.com/dgallion1/docsite/internal/stream"
)

// DefaultPreviewLimit caps the items shown per home preview block.
const DefaultPreviewLimit = 6

// Item is one entry of a section, such as a news post or an event.
type Item struct {
	Index     int      `json:"index" yaml:"index"` // 1-based position in its section
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	Images    []string `json:"images,omitempty" yaml:"images,omitempty"`
	EventDate string   `json:"event_date,omitempty" yaml:"event_date,omitempty"`
	Excerpt   string   `json:"excerpt" yaml:"excerpt"`
	Slug      string   `json:"slug" yaml:"slug"`
}

// HasDetail reports whether the item gets its own detail page.
func (it Item) HasDetail() bool { return len(it.Images) > 0 }

// MenuSection is a navigable section with its items in document order.
type MenuSection struct {
	Title string `json:"title" yaml:"title"`
	Slug  string `json:"slug" yaml:"slug"`
	Items []Item `json:"items" yaml:"items"`
}

// URL is the section page path.
func (s MenuSection) URL() string { return "/" + s.Slug + "/" }

// DetailURL is the detail page path of it, or "" when it has none.
func (s MenuSection) DetailURL(it Item) string {
	if !it.HasDetail() {
		return ""
	}
	return "/" + s.Slug + "/" + it.Slug + "/"
}

// Item looks up an item by slug.
func (s MenuSection) Item(itemSlug string) (Item, bool) {
	for _, it := range s.Items {
		if it.Slug == itemSlug {
			return it, true
		}
	}
	return Item{}, false
}

// SiteModel is the complete structured site.
type SiteModel struct {
	HomeTitle   string             `json:"home_title" yaml:"home_title"`
	SiteTitle   string             `json:"site_title" yaml:"site_title"`
	HeaderMain  string             `json:"header_main" yaml:"header_main"`
	HeaderSub   string             `json:"header_sub" yaml:"header_sub"`
	FooterText  string             `json:"footer_text" yaml:"footer_text"`
	LogoImage   string             `json:"logo_image,omitempty" yaml:"logo_image,omitempty"`
	HomeContent []stream.Paragraph `json:"home_content" yaml:"home_content"`
	Sections    []MenuSection      `json:"sections" yaml:"sections"`
	PreviewKeys []string           `json:"preview_keys" yaml:"preview_keys"`

	// Images maps image reference ids to where the decoder found them.
	Images map[string]string `json:"images,omitempty" yaml:"images,omitempty"`
}

// Section looks up a section by slug.
func (m *SiteModel) Section(sectionSlug string) (MenuSection, bool) {
	for _, s := range m.Sections {
		if s.Slug == sectionSlug {
			return s, true
		}
	}
	return MenuSection{}, false
}

// PreviewSections returns the sections named by the home preview callouts,
// in callout order, each cut to at most limit items. Callouts that match no
// section, or a section without items, are skipped. A limit of zero or less
// means DefaultPreviewLimit.
func (m *SiteModel) PreviewSections(limit int) []MenuSection {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	byKey := make(map[string]MenuSection, len(m.Sections))
	for _, s := range m.Sections {
		byKey[slug.Normalize(s.Title)] = s
	}

	var out []MenuSection
	for _, key := range m.PreviewKeys {
		s, ok := byKey[key]
		if !ok || len(s.Items) == 0 {
			continue
		}
		if len(s.Items) > limit {
			s.Items = s.Items[:limit:limit]
		}
		out = append(out, s)
	}
	return out
}
