package stream

import "strings"

// Paragraph is one styled block of a decoded document.
type Paragraph struct {
	Depth  int      `json:"depth,omitempty" yaml:"depth,omitempty"` // heading level 1-4, 0 for body
	Text   string   `json:"text" yaml:"text"`                       // trimmed, may be empty
	Images []string `json:"images,omitempty" yaml:"images,omitempty"`
}

// IsHeading reports whether p is a heading of the given level with text.
func (p Paragraph) IsHeading(level int) bool {
	return p.Depth == level && p.Text != ""
}

// Stream is the ordered paragraph sequence produced by a decoder.
type Stream struct {
	Paragraphs []Paragraph
	// Images maps an image reference id to the locator its bytes live at
	// (a zip part name for DOCX, a URL or path for Markdown and HTML).
	Images map[string]string
}

// New returns an empty stream with an initialized image table.
func New() *Stream {
	return &Stream{Images: make(map[string]string)}
}

// Append adds a paragraph if it carries text or images. Heading levels
// outside 1-4 become body text and image ids are de-duplicated.
func (s *Stream) Append(depth int, text string, images []string) {
	text = strings.TrimSpace(text)
	images = Dedup(images)
	if text == "" && len(images) == 0 {
		return
	}
	if depth < 1 || depth > 4 {
		depth = 0
	}
	s.Paragraphs = append(s.Paragraphs, Paragraph{Depth: depth, Text: text, Images: images})
}

// AddImage records the locator for an image reference id.
func (s *Stream) AddImage(id, locator string) {
	if s.Images == nil {
		s.Images = make(map[string]string)
	}
	s.Images[id] = locator
}

// CanonicalText flattens the stream into a stable textual form used for
// content hashing. Two streams with the same structure produce the same text.
func (s *Stream) CanonicalText() string {
	var sb strings.Builder
	for _, p := range s.Paragraphs {
		sb.WriteByte(byte('0' + p.Depth))
		sb.WriteByte('\t')
		sb.WriteString(p.Text)
		for _, id := range p.Images {
			sb.WriteString("\t!")
			sb.WriteString(s.Images[id])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Dedup returns ids without empty values or repeats, preserving first-seen order.
func Dedup(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Merge appends ids from add to dst that dst does not already contain.
func Merge(dst []string, add []string) []string {
	for _, id := range add {
		if id == "" || contains(dst, id) {
			continue
		}
		dst = append(dst, id)
	}
	return dst
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
