// Package export serializes a SiteModel for API clients and static renderers.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsite/internal/sitemodel"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves a format name. An empty name means JSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// ContentType is the HTTP media type for f.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Write encodes m to w.
func Write(w io.Writer, m *sitemodel.SiteModel, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		// Item bodies carry embed markup; keep it readable.
		enc.SetEscapeHTML(false)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

// Marshal returns the compact JSON form used for storage.
func Marshal(m *sitemodel.SiteModel) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal site model: %w", err)
	}
	return data, nil
}

// Unmarshal reverses Marshal.
func Unmarshal(data []byte) (*sitemodel.SiteModel, error) {
	var m sitemodel.SiteModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal site model: %w", err)
	}
	return &m, nil
}
