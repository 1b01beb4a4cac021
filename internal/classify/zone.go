package classify

import "strings"

// Reserved section keys, compared after slug.Normalize.
const (
	KeyMenu    = "меню"
	KeyTitle   = "название"
	KeyContent = "контент"
)

const (
	footerMarker = "нижний"
	footerSpellA = "колонтитул"
	footerSpellB = "колонтикул" // misspelling seen in real documents
)

// Kind labels the part of the site a paragraph belongs to.
type Kind int

const (
	KindNone Kind = iota
	KindMenu
	KindTitle
	KindContent
	KindFooter
	KindSection
	KindPreview
)

func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindTitle:
		return "title"
	case KindContent:
		return "content"
	case KindFooter:
		return "footer"
	case KindSection:
		return "section"
	case KindPreview:
		return "home_preview"
	default:
		return "none"
	}
}

// Zone is the classification assigned to one paragraph.
type Zone struct {
	Kind Kind
	Key  string // normalized section key, set for KindSection and KindPreview
}

func (z Zone) String() string {
	if z.Key == "" {
		return z.Kind.String()
	}
	return z.Kind.String() + "(" + z.Key + ")"
}

// IsBaseKey reports whether key names one of the reserved base zones.
func IsBaseKey(key string) bool {
	switch key {
	case KeyMenu, KeyTitle, KeyContent:
		return true
	}
	return false
}

// IsFooterKey reports whether key is a footer marker heading.
func IsFooterKey(key string) bool {
	return strings.Contains(key, footerMarker) &&
		(strings.Contains(key, footerSpellA) || strings.Contains(key, footerSpellB))
}

func baseZone(key string) Zone {
	switch key {
	case KeyMenu:
		return Zone{Kind: KindMenu}
	case KeyTitle:
		return Zone{Kind: KindTitle}
	case KeyContent:
		return Zone{Kind: KindContent}
	}
	return Zone{}
}
