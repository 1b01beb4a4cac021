package parser

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/dgallion1/docsite/internal/stream"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextParser handles plain text files. Text is normalized to UTF-8 and then
// read with Markdown rules, so "# Heading" lines still carry depth.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*stream.Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return decodeMarkdown(ToUTF8(data)), nil
}

// ToUTF8 returns data decoded to UTF-8. Valid UTF-8 passes through with any
// byte order mark removed; otherwise the charset is detected. Undetectable
// input is returned unchanged.
func ToUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}

	res, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return data
	}
	enc, err := htmlindex.Get(res.Charset)
	if err != nil {
		return data
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}
