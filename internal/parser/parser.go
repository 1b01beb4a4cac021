package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dgallion1/docsite/internal/stream"
)

// Parser converts raw document bytes into a paragraph stream.
type Parser interface {
	Parse(r io.Reader, filename string) (*stream.Stream, error)
}

// Options tune the parsers returned by ForFile and Detect.
type Options struct {
	// PDFFallback runs pdftotext when the PDF library cannot read a file.
	PDFFallback bool
}

// UnsupportedFormatError is returned when neither the file extension nor
// the content identifies a format this service can decode.
type UnsupportedFormatError struct {
	Filename string
	MIME     string
}

func (e *UnsupportedFormatError) Error() string {
	if e.MIME != "" {
		return fmt.Sprintf("unsupported file format: %s (%s)", e.Filename, e.MIME)
	}
	return fmt.Sprintf("unsupported file extension: %s", filepath.Ext(e.Filename))
}

// IsUnsupportedFormat reports whether err is an *UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	var ue *UnsupportedFormatError
	return errors.As(err, &ue)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".docx":     true,
	".md":       true,
	".markdown": true,
	".txt":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
}

// ForFile returns the parser for a filename's extension.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".docx":
		return &DOCXParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	default:
		return nil, &UnsupportedFormatError{Filename: filename}
	}
}

// Detect picks a parser by extension, falling back to sniffing data when
// the extension is missing or unknown.
func Detect(filename string, data []byte, opts Options) (Parser, error) {
	if p, err := ForFile(filename, opts); err == nil {
		return p, nil
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return &DOCXParser{}, nil
	case mt.Is("application/pdf"):
		return &PDFParser{FallbackPdftotext: opts.PDFFallback}, nil
	case mt.Is("text/html"):
		return &HTMLParser{}, nil
	case mt.Is("text/plain"):
		return &TextParser{}, nil
	}
	return nil, &UnsupportedFormatError{Filename: filename, MIME: mt.String()}
}

// FormatName is the short format label of p, such as "docx" or "pdf".
func FormatName(p Parser) string {
	switch p.(type) {
	case *DOCXParser:
		return "docx"
	case *MarkdownParser:
		return "markdown"
	case *TextParser:
		return "text"
	case *HTMLParser:
		return "html"
	case *PDFParser:
		return "pdf"
	}
	return "unknown"
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}
