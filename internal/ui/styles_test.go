package ui

import (
	"strings"
	"testing"
)

func TestTableContainsCells(t *testing.T) {
	out := Table([]string{"ID", "pH"}, [][]string{{"a1", "6.8"}, {"b2", "7.1"}})
	for _, want := range []string{"ID", "pH", "a1", "6.8", "b2", "7.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderKeepsText(t *testing.T) {
	for _, render := range []func(string) string{RenderPass, RenderWarn, RenderFail, RenderAccent, RenderMuted, RenderBold} {
		if out := render("✓ synced"); !strings.Contains(out, "✓ synced") {
			t.Errorf("rendered output lost its text: %q", out)
		}
	}
}
