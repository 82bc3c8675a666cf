package remote

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeDecodeContent(t *testing.T) {
	in := map[string]any{"icon": "🌱", "title": "Paludario è bello", "html": "<a&b>"}
	enc, err := EncodeContent(in)
	if err != nil {
		t.Fatalf("EncodeContent() failed: %v", err)
	}

	// GitHub returns the payload wrapped at 60 columns
	var wrapped strings.Builder
	for i := 0; i < len(enc); i += 60 {
		end := min(i+60, len(enc))
		wrapped.WriteString(enc[i:end])
		wrapped.WriteString("\n")
	}

	raw, err := DecodeContent(wrapped.String())
	if err != nil {
		t.Fatalf("DecodeContent() failed: %v", err)
	}
	want := "{\n  \"html\": \"<a&b>\",\n  \"icon\": \"🌱\",\n  \"title\": \"Paludario è bello\"\n}"
	if string(raw) != want {
		t.Errorf("decoded = %q\nwant      %q", raw, want)
	}
}

func TestDecodeContentInvalid(t *testing.T) {
	if _, err := DecodeContent("not base64!"); err == nil {
		t.Error("expected an error for invalid base64")
	}
	raw, err := DecodeContent(base64.StdEncoding.EncodeToString([]byte("[]")))
	if err != nil || string(raw) != "[]" {
		t.Errorf("DecodeContent() = %q, %v", raw, err)
	}
}
