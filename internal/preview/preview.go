// Package preview renders a SiteModel as sanitized HTML pages so a converted
// document can be checked before it is handed to a site generator.
package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/docsite/internal/sitemodel"
	"github.com/dgallion1/docsite/internal/stream"
)

// Renderer turns item bodies and home content into HTML. Raw markup in
// bodies is allowed through goldmark and then filtered by bluemonday.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	pages  *template.Template

	previewLimit int
}

// New builds a Renderer. previewLimit caps items per home preview block.
func New(previewLimit int) *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithUnsafe(),
			),
		),
		policy:       Policy(),
		pages:        template.Must(template.New("pages").Parse(pageTemplates)),
		previewLimit: previewLimit,
	}
}

// Policy is the sanitizer for rendered bodies: user-generated content rules
// plus the responsive video embed wrapper.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("iframe")
	p.AllowAttrs("src", "frameborder", "allowfullscreen").OnElements("iframe")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div")
	p.AllowStyles("position", "top", "left", "width", "height", "padding-bottom", "overflow").
		OnElements("div", "iframe")
	return p
}

// Markdown renders src to sanitized HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// sanitize passes trusted joins of untrusted lines, such as header text
// joined with <br>, through the same policy.
func (r *Renderer) sanitize(s string) template.HTML {
	return template.HTML(r.policy.Sanitize(s))
}

type link struct {
	Title string
	URL   string
}

type previewItem struct {
	Title     string
	EventDate string
	Excerpt   string
	URL       string
}

type previewBlock struct {
	Title string
	URL   string
	Items []previewItem
}

type homePage struct {
	SiteTitle  string
	Logo       string
	HeaderMain string
	HeaderSub  template.HTML
	Footer     template.HTML
	Menu       []link
	Content    template.HTML
	Previews   []previewBlock
}

type itemPage struct {
	SiteTitle string
	Section   link
	Title     string
	EventDate string
	Body      template.HTML
	Images    []string
	Footer    template.HTML
}

// Home writes the home page of m.
func (r *Renderer) Home(w io.Writer, m *sitemodel.SiteModel) error {
	content, err := r.Markdown(ParagraphsMarkdown(m.HomeContent, m.Images))
	if err != nil {
		return err
	}

	page := homePage{
		SiteTitle:  m.SiteTitle,
		Logo:       m.Images[m.LogoImage],
		HeaderMain: m.HeaderMain,
		HeaderSub:  r.sanitize(m.HeaderSub),
		Footer:     r.sanitize(m.FooterText),
		Content:    content,
	}
	for _, s := range m.Sections {
		page.Menu = append(page.Menu, link{Title: s.Title, URL: s.URL()})
	}
	for _, s := range m.PreviewSections(r.previewLimit) {
		block := previewBlock{Title: s.Title, URL: s.URL()}
		for _, it := range s.Items {
			block.Items = append(block.Items, previewItem{
				Title:     it.Title,
				EventDate: it.EventDate,
				Excerpt:   excerptText(it.Excerpt),
				URL:       s.DetailURL(it),
			})
		}
		page.Previews = append(page.Previews, block)
	}
	return r.pages.ExecuteTemplate(w, "home", page)
}

// Item writes the detail page of one item.
func (r *Renderer) Item(w io.Writer, m *sitemodel.SiteModel, s sitemodel.MenuSection, it sitemodel.Item) error {
	body, err := r.Markdown(it.Body)
	if err != nil {
		return err
	}
	page := itemPage{
		SiteTitle: m.SiteTitle,
		Section:   link{Title: s.Title, URL: s.URL()},
		Title:     it.Title,
		EventDate: it.EventDate,
		Body:      body,
		Footer:    r.sanitize(m.FooterText),
	}
	for _, id := range it.Images {
		if loc := m.Images[id]; loc != "" {
			page.Images = append(page.Images, loc)
		}
	}
	return r.pages.ExecuteTemplate(w, "item", page)
}

// ParagraphsMarkdown rebuilds Markdown from stream paragraphs: headings get
// their depth back and images are appended by locator.
func ParagraphsMarkdown(ps []stream.Paragraph, images map[string]string) string {
	var parts []string
	for _, p := range ps {
		var sb strings.Builder
		if p.Depth > 0 && p.Text != "" {
			sb.WriteString(strings.Repeat("#", p.Depth))
			sb.WriteByte(' ')
		}
		sb.WriteString(p.Text)
		for _, id := range p.Images {
			loc := images[id]
			if loc == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "![](%s)", loc)
		}
		if sb.Len() > 0 {
			parts = append(parts, sb.String())
		}
	}
	return strings.Join(parts, "\n\n")
}

// excerptText drops embed markup from an excerpt shown as plain text.
func excerptText(s string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(s))
}

const pageTemplates = `
{{define "header"}}<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>{{.}}</title></head>
<body>{{end}}

{{define "home"}}{{template "header" .SiteTitle}}
<header>
{{with .Logo}}<img class="logo" src="{{.}}" alt="">{{end}}
<h1>{{.HeaderMain}}</h1>
{{with .HeaderSub}}<p class="header-sub">{{.}}</p>{{end}}
</header>
<nav><ul>{{range .Menu}}<li><a href="{{.URL}}">{{.Title}}</a></li>{{end}}</ul></nav>
<main>
{{.Content}}
{{range .Previews}}<section class="preview">
<h2><a href="{{.URL}}">{{.Title}}</a></h2>
<ul>{{range .Items}}<li>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}{{with .EventDate}} <time>{{.}}</time>{{end}}{{with .Excerpt}}<p>{{.}}</p>{{end}}</li>{{end}}</ul>
</section>{{end}}
</main>
<footer>{{.Footer}}</footer>
</body>
</html>{{end}}

{{define "item"}}{{template "header" .Title}}
<nav><a href="/">{{.SiteTitle}}</a> / <a href="{{.Section.URL}}">{{.Section.Title}}</a></nav>
<article>
<h1>{{.Title}}</h1>
{{with .EventDate}}<time>{{.}}</time>{{end}}
{{.Body}}
{{range .Images}}<img src="{{.}}" alt="">{{end}}
</article>
<footer>{{.Footer}}</footer>
</body>
</html>{{end}}
`
