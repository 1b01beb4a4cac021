// Package slug derives URL-safe identifiers and short summaries from
// document text. Cyrillic is transliterated to Latin; any other
// non-ASCII letter is dropped, which keeps existing slugs stable.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ExcerptLimit is the maximum excerpt length in characters, ellipsis included.
const ExcerptLimit = 240

const ellipsis = "..."

var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize returns the comparison key for a heading or menu name:
// trimmed and lowercased.
func Normalize(s string) string {
	// Casers are stateful; one per call keeps Normalize goroutine-safe.
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Transliterate lowercases s and replaces Cyrillic letters with their
// Latin spelling. Characters without a mapping pass through unchanged.
func Transliterate(s string) string {
	s = cases.Lower(language.Und).String(norm.NFC.String(s))
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if latin, ok := cyrillic[r]; ok {
			sb.WriteString(latin)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Make turns s into a lowercase ASCII slug with single '-' separators.
// When nothing alphanumeric survives, fallback is returned.
func Make(s, fallback string) string {
	out := strings.Trim(nonAlnum.ReplaceAllString(Transliterate(s), "-"), "-")
	if out == "" {
		return fallback
	}
	return out
}

// Excerpt returns the first blank-line-delimited block of body, cut to
// ExcerptLimit characters with a trailing ellipsis when longer.
func Excerpt(body string) string {
	first, _, _ := strings.Cut(body, "\n\n")
	first = strings.TrimSpace(first)
	r := []rune(first)
	if len(r) <= ExcerptLimit {
		return first
	}
	cut := ExcerptLimit - len(ellipsis)
	return strings.TrimRightFunc(string(r[:cut]), unicode.IsSpace) + ellipsis
}
