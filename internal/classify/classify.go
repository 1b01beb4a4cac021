// Package classify assigns every paragraph of a canonical stream to a site
// zone: menu, title block, home content, footer, a named section, or a home
// preview callout.
package classify

import (
	"errors"

	"github.com/dgallion1/docsite/internal/slug"
	"github.com/dgallion1/docsite/internal/stream"
)

// ErrEmptyStream is returned when there is no paragraph to take the home
// title from.
var ErrEmptyStream = errors.New("classify: empty paragraph stream")

// Section is the bucket of paragraphs collected under one named section.
type Section struct {
	Key        string
	Title      string
	Paragraphs []stream.Paragraph
}

// Result holds everything the classifier collected, in document order.
type Result struct {
	HomeTitle string

	// Menu lists the menu entry names as written. When the document declares
	// none, it holds the section titles in discovery order and MenuDeclared
	// is false.
	Menu         []string
	MenuDeclared bool

	TitleLines  []string
	TitleImages []string
	FooterLines []string
	Content     []stream.Paragraph
	Sections    []Section
	PreviewKeys []string

	// Zones is parallel to the input: Zones[i] is the zone of paragraph i.
	// The home title paragraph is KindNone.
	Zones []Zone

	titles map[string]string
	index  map[string]int
}

// Title returns the heading text first seen for key.
func (r *Result) Title(key string) (string, bool) {
	t, ok := r.titles[key]
	return t, ok
}

// Section returns the bucket registered under key.
func (r *Result) Section(key string) (*Section, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return &r.Sections[i], true
}

// Classify walks paragraphs in order. The first paragraph supplies the home
// title and is not assigned to any zone bucket.
func Classify(paragraphs []stream.Paragraph) (*Result, error) {
	if len(paragraphs) == 0 {
		return nil, ErrEmptyStream
	}

	home := paragraphs[0].Text
	r := &Result{
		HomeTitle: home,
		Zones:     make([]Zone, 1, len(paragraphs)),
		titles:    make(map[string]string),
		index:     make(map[string]int),
	}

	st := NewState(home)
	for _, p := range paragraphs[1:] {
		var d Decision
		st, d = Step(st, p)
		r.Zones = append(r.Zones, d.Zone)
		r.apply(d, p)
	}

	r.MenuDeclared = len(r.Menu) > 0
	if !r.MenuDeclared {
		for _, s := range r.Sections {
			r.Menu = append(r.Menu, s.Title)
		}
	}
	return r, nil
}

func (r *Result) apply(d Decision, p stream.Paragraph) {
	switch d.Action {
	case ActionEnter:
		r.register(d.Zone, d.Title)
	case ActionPreview:
		for _, k := range r.PreviewKeys {
			if k == d.Zone.Key {
				return
			}
		}
		r.PreviewKeys = append(r.PreviewKeys, d.Zone.Key)
	case ActionMenuEntry:
		r.Menu = append(r.Menu, p.Text)
	case ActionAppend:
		r.collect(d.Zone, p)
	}
}

// register records the first heading seen for a zone. Re-entering a section
// keeps its original title and position. Footer headings are not recorded.
func (r *Result) register(z Zone, title string) {
	if z.Kind == KindFooter {
		return
	}
	key := z.Key
	if z.Kind != KindSection {
		key = slug.Normalize(title)
	}
	if _, ok := r.titles[key]; !ok {
		r.titles[key] = title
	}
	if z.Kind != KindSection {
		return
	}
	if _, ok := r.index[key]; !ok {
		r.index[key] = len(r.Sections)
		r.Sections = append(r.Sections, Section{Key: key, Title: title})
	}
}

func (r *Result) collect(z Zone, p stream.Paragraph) {
	switch z.Kind {
	case KindTitle:
		if p.Text != "" {
			r.TitleLines = append(r.TitleLines, p.Text)
		}
		r.TitleImages = stream.Merge(r.TitleImages, p.Images)
	case KindContent:
		r.Content = append(r.Content, p)
	case KindFooter:
		if p.Text != "" {
			r.FooterLines = append(r.FooterLines, p.Text)
		}
	case KindSection:
		if i, ok := r.index[z.Key]; ok {
			r.Sections[i].Paragraphs = append(r.Sections[i].Paragraphs, p)
		}
	}
}
