package parser

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"slices"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docsite/internal/stream"
)

// Heading depth in a PDF comes from font size: the most common size is body
// text and up to four larger sizes become depths 1-4.
const (
	pdfMaxHeadingSizes = 4
	pdfJoinGap         = 1.5 // line heights
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*stream.Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	lines, err := pdfLines(data)
	if err == nil && len(lines) > 0 {
		return buildPDFStream(lines), nil
	}
	if !p.FallbackPdftotext {
		if err == nil {
			return stream.New(), nil
		}
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	text, ferr := extractPdftotext(data)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w (fallback: %v)", err, ferr)
		}
		return nil, fmt.Errorf("extract pdf text: %w", ferr)
	}
	return plainParagraphs(text), nil
}

// pdfLine is one visual row of text.
type pdfLine struct {
	page int
	y    float64
	size float64
	text string
}

func pdfLines(data []byte) (lines []pdfLine, err error) {
	// The PDF library panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			if l, ok := rowLine(i, row); ok {
				lines = append(lines, l)
			}
		}
	}
	return lines, nil
}

func rowLine(page int, row *pdflib.Row) (pdfLine, bool) {
	var sb strings.Builder
	var size float64
	var prevEnd float64
	for i, t := range row.Content {
		if i > 0 && t.X-prevEnd > t.FontSize*0.2 && !strings.HasSuffix(sb.String(), " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W
		size = math.Max(size, t.FontSize)
	}
	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return pdfLine{}, false
	}
	return pdfLine{page: page, y: float64(row.Position), size: roundHalf(size), text: text}, true
}

func roundHalf(v float64) float64 { return math.Round(v*2) / 2 }

func buildPDFStream(lines []pdfLine) *stream.Stream {
	depths := headingDepths(lines)
	s := stream.New()

	var para []string
	var last pdfLine
	flush := func() {
		if len(para) > 0 {
			s.Append(0, strings.Join(para, " "), nil)
			para = nil
		}
	}

	for _, l := range lines {
		if d, ok := depths[l.size]; ok {
			flush()
			s.Append(d, l.text, nil)
			last = pdfLine{}
			continue
		}
		joins := len(para) > 0 && l.page == last.page &&
			math.Abs(last.y-l.y) < pdfJoinGap*math.Max(l.size, 1)
		if !joins {
			flush()
		}
		para = append(para, l.text)
		last = l
	}
	flush()
	return s
}

// headingDepths ranks font sizes larger than the body size.
func headingDepths(lines []pdfLine) map[float64]int {
	weight := make(map[float64]int)
	for _, l := range lines {
		weight[l.size] += len([]rune(l.text))
	}
	sizes := make([]float64, 0, len(weight))
	for sz := range weight {
		sizes = append(sizes, sz)
	}
	// Heaviest first; ties go to the smaller size so the body is stable.
	slices.SortFunc(sizes, func(a, b float64) int {
		if c := cmp.Compare(weight[b], weight[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(sizes) == 0 {
		return nil
	}
	body := sizes[0]

	var larger []float64
	for _, sz := range sizes {
		if sz > body {
			larger = append(larger, sz)
		}
	}
	slices.SortFunc(larger, func(a, b float64) int { return cmp.Compare(b, a) })
	if len(larger) > pdfMaxHeadingSizes {
		larger = larger[:pdfMaxHeadingSizes]
	}

	depths := make(map[float64]int, len(larger))
	for i, sz := range larger {
		depths[sz] = i + 1
	}
	return depths
}

// plainParagraphs splits text on blank lines into body paragraphs.
func plainParagraphs(text string) *stream.Stream {
	s := stream.New()
	for _, block := range strings.Split(strings.ReplaceAll(text, "\f", "\n\n"), "\n\n") {
		s.Append(0, strings.Join(strings.Fields(block), " "), nil)
	}
	return s
}

func extractPdftotext(data []byte) (string, error) {
	// pdftotext reads from a path, so write to a temp file.
	tmp, err := os.CreateTemp("", "docsite-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-layout", tmpPath, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
