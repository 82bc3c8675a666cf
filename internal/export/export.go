// Package export writes the aggregate as JSON, YAML, TOML or an Excel
// workbook.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tia2694/paludario/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML, FormatXLSX}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// Write encodes agg to w in the given format.
func Write(w io.Writer, agg model.Aggregate, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(agg); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil

	case FormatYAML:
		doc, err := document(agg)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()

	case FormatTOML:
		doc, err := document(agg)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil

	case FormatXLSX:
		return writeWorkbook(w, agg)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// document converts agg to plain maps and slices using its JSON field
// names. Nulls are dropped since TOML cannot represent them, and integral
// numbers stay integers.
func document(agg model.Aggregate) (map[string]any, error) {
	raw, err := json.Marshal(agg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode aggregate: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode aggregate: %w", err)
	}
	return prune(doc).(map[string]any), nil
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			if e == nil {
				delete(t, k)
				continue
			}
			t[k] = prune(e)
		}
		return t
	case []any:
		out := t[:0]
		for _, e := range t {
			if e != nil {
				out = append(out, prune(e))
			}
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	}
	return v
}
