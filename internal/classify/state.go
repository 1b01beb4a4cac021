package classify

import (
	"github.com/dgallion1/docsite/internal/slug"
	"github.com/dgallion1/docsite/internal/stream"
)

// Convention is the section-marking scheme in effect for a document.
type Convention int

const (
	// ConventionDiscover applies while no menu entries are declared:
	// every new top-level heading opens a section.
	ConventionDiscover Convention = iota
	// ConventionDeclared applies once the menu lists entries: only headings
	// naming a menu entry open a section, at depth 1 or, for older
	// documents, depth 2.
	ConventionDeclared
)

func (c Convention) String() string {
	if c == ConventionDeclared {
		return "declared"
	}
	return "discover"
}

// State is the classifier's position in the stream. It is a value: Step
// never mutates the State it is given.
type State struct {
	home string
	h1   string
	zone Zone
	menu []string
}

// NewState starts classification for a document whose first paragraph
// reads homeTitle.
func NewState(homeTitle string) State {
	key := slug.Normalize(homeTitle)
	return State{home: key, h1: key}
}

// Zone returns the zone that body paragraphs currently inherit.
func (s State) Zone() Zone { return s.zone }

// UnderHome reports whether the most recent top-level heading is still the
// home title.
func (s State) UnderHome() bool { return s.h1 == s.home }

// Menu returns the normalized menu keys declared so far.
func (s State) Menu() []string { return s.menu[:len(s.menu):len(s.menu)] }

// Convention reports the section-marking scheme for the next heading.
func (s State) Convention() Convention {
	if len(s.menu) > 0 {
		return ConventionDeclared
	}
	return ConventionDiscover
}

func (s State) declares(key string) bool {
	for _, k := range s.menu {
		if k == key {
			return true
		}
	}
	return false
}

// Action is what a paragraph contributes to the accumulated result.
type Action int

const (
	// ActionAppend adds the paragraph to the bucket of Decision.Zone.
	ActionAppend Action = iota
	// ActionEnter means the paragraph was a heading that opened Decision.Zone.
	ActionEnter
	// ActionPreview means the paragraph was a home preview callout for Decision.Zone.Key.
	ActionPreview
	// ActionMenuEntry means the paragraph declared a menu entry.
	ActionMenuEntry
	// ActionDrop means the paragraph contributes nothing.
	ActionDrop
)

// Decision is the outcome of classifying one paragraph.
type Decision struct {
	Action Action
	Zone   Zone
	Title  string // heading text for ActionEnter
}

// Step classifies p given s and returns the state for the next paragraph.
//
// Heading checks run in a fixed order: footer marker, home preview callout,
// base zone, then named section. The first match wins.
func Step(s State, p stream.Paragraph) (State, Decision) {
	if p.IsHeading(1) {
		s.h1 = slug.Normalize(p.Text)
	}
	if p.IsHeading(1) || p.IsHeading(2) {
		if next, d, ok := s.enter(p); ok {
			return next, d
		}
	}
	return s.inherit(p)
}

func (s State) enter(p stream.Paragraph) (State, Decision, bool) {
	key := slug.Normalize(p.Text)
	sub := p.Depth == 2

	switch {
	case sub && s.UnderHome() && IsFooterKey(key):
		s.zone = Zone{Kind: KindFooter}
		return s, Decision{Action: ActionEnter, Zone: s.zone, Title: p.Text}, true
	case sub && s.UnderHome() && !IsBaseKey(key):
		s.zone = Zone{Kind: KindNone}
		return s, Decision{Action: ActionPreview, Zone: Zone{Kind: KindPreview, Key: key}}, true
	case sub && IsBaseKey(key):
		s.zone = baseZone(key)
		return s, Decision{Action: ActionEnter, Zone: s.zone, Title: p.Text}, true
	}

	if !s.opensSection(p.Depth, key) {
		return s, Decision{}, false
	}
	z := Zone{Kind: KindSection, Key: key}
	if IsBaseKey(key) {
		z = baseZone(key)
	}
	s.zone = z
	return s, Decision{Action: ActionEnter, Zone: z, Title: p.Text}, true
}

func (s State) opensSection(depth int, key string) bool {
	switch s.Convention() {
	case ConventionDeclared:
		return s.declares(key)
	default:
		return depth == 1 && key != s.home && !IsBaseKey(key)
	}
}

func (s State) inherit(p stream.Paragraph) (State, Decision) {
	switch s.zone.Kind {
	case KindNone:
		return s, Decision{Action: ActionDrop, Zone: s.zone}
	case KindMenu:
		if !p.IsHeading(3) {
			return s, Decision{Action: ActionDrop, Zone: s.zone}
		}
		// Full slice expression forces a copy so earlier States keep their menu.
		s.menu = append(s.menu[:len(s.menu):len(s.menu)], slug.Normalize(p.Text))
		return s, Decision{Action: ActionMenuEntry, Zone: s.zone}
	}
	return s, Decision{Action: ActionAppend, Zone: s.zone}
}
