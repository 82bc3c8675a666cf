package remote

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalDocument renders v as two-space indented JSON without HTML escaping,
// the format of the files in the repository.
func MarshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeContent encodes v as base64 UTF-8 JSON for a Contents API write.
func EncodeContent(v any) (string, error) {
	raw, err := MarshalDocument(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeContent decodes the base64 payload of a Contents API read. GitHub
// wraps the payload every 60 characters.
func DecodeContent(content string) ([]byte, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return raw, nil
}
