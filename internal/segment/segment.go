// Package segment splits the paragraphs of one section into items.
//
// A depth-3 heading starts an item. Depth-4 headings beginning with a
// marker word carry metadata: "Дата" sets the event date and "Видео"
// embeds a video. A marker with no inline value takes the text of the
// next paragraph instead.
package segment

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docsite/internal/sitemodel"
	"github.com/dgallion1/docsite/internal/slug"
	"github.com/dgallion1/docsite/internal/stream"
)

// Marker words, compared against the normalized heading prefix.
const (
	DateMarker  = "дата"
	VideoMarker = "видео"
)

var iframeSrc = regexp.MustCompile(`(?is)<iframe\b[^>]*?\bsrc\s*=\s*["']([^"']+)["']`)

// Items segments the paragraphs of a section. sectionTitle names the
// implicit item opened by content that precedes any depth-3 heading, and
// sectionSlug prefixes fallback item slugs.
func Items(sectionTitle, sectionSlug string, paragraphs []stream.Paragraph) []sitemodel.Item {
	sg := &segmenter{
		sectionTitle: sectionTitle,
		sectionSlug:  sectionSlug,
		used:         make(map[string]bool),
	}
	for _, p := range paragraphs {
		sg.feed(p)
	}
	sg.flush()
	return sg.items
}

type segmenter struct {
	sectionTitle string
	sectionSlug  string
	items        []sitemodel.Item
	used         map[string]bool

	open   bool
	title  string
	body   []string
	images []string
	date   string

	awaitDate  bool
	awaitVideo bool
}

func (sg *segmenter) feed(p stream.Paragraph) {
	if p.IsHeading(3) {
		sg.flush()
		sg.awaitDate, sg.awaitVideo = false, false
		sg.open, sg.title = true, p.Text
		return
	}

	if p.IsHeading(4) {
		if v, ok := markerValue(p.Text, DateMarker); ok {
			sg.awaitDate, sg.awaitVideo = v == "", false
			if v != "" {
				sg.date = v
			}
			return
		}
		if v, ok := markerValue(p.Text, VideoMarker); ok {
			sg.awaitDate, sg.awaitVideo = false, v == ""
			if v != "" {
				sg.addVideo(v)
			}
			return
		}
	}

	if !sg.open {
		sg.open, sg.title = true, sg.sectionTitle
	}

	// A latched value consumes the whole paragraph, images included.
	switch {
	case sg.awaitDate && p.Text != "":
		sg.date, sg.awaitDate = p.Text, false
		return
	case sg.awaitVideo && p.Text != "":
		sg.addVideo(p.Text)
		sg.awaitVideo = false
		return
	}
	if p.Text != "" {
		sg.body = append(sg.body, p.Text)
	}
	sg.images = stream.Merge(sg.images, p.Images)
}

func (sg *segmenter) addVideo(value string) {
	sg.body = append(sg.body, EmbedBlock(VideoURL(value)))
}

func (sg *segmenter) flush() {
	if !sg.open {
		return
	}
	idx := len(sg.items) + 1
	body := joinBody(sg.body)
	sg.items = append(sg.items, sitemodel.Item{
		Index:     idx,
		Title:     sg.title,
		Body:      body,
		Images:    sg.images,
		EventDate: sg.date,
		Excerpt:   slug.Excerpt(body),
		Slug:      sg.unique(slug.Make(sg.title, fmt.Sprintf("%s-item-%d", sg.sectionSlug, idx))),
	})

	sg.open, sg.title = false, ""
	sg.body, sg.images, sg.date = nil, nil, ""
	sg.awaitDate, sg.awaitVideo = false, false
}

// unique suffixes s with -2, -3, ... until it is unused in this section.
func (sg *segmenter) unique(s string) string {
	candidate := s
	for n := 2; sg.used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", s, n)
	}
	sg.used[candidate] = true
	return candidate
}

func joinBody(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

// markerValue reports whether text starts with marker (case-insensitive)
// and returns the remainder with separators stripped.
func markerValue(text, marker string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(slug.Normalize(text), marker) {
		return "", false
	}
	rest := string([]rune(text)[len([]rune(marker)):])
	return strings.TrimFunc(rest, isSeparator), true
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(":.-–—", r)
}

// VideoURL extracts the iframe source from an embed snippet. Anything else
// is returned trimmed.
func VideoURL(value string) string {
	v := strings.TrimSpace(value)
	if m := iframeSrc.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// EmbedBlock renders a responsive 16:9 iframe wrapper for url.
func EmbedBlock(url string) string {
	return `<div class="video-embed" style="position:relative;padding-bottom:56.25%;height:0;overflow:hidden;">` +
		`<iframe src="` + html.EscapeString(url) + `" style="position:absolute;top:0;left:0;width:100%;height:100%;" frameborder="0" allowfullscreen></iframe></div>`
}
