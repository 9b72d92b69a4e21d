package templates

import (
	"strings"
	"testing"
)

func TestRenderWelcome(t *testing.T) {
	subject, text, html, err := Render("welcome", map[string]any{"Name": "Ada", "Role": "USER"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(subject, "Ada") {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(text, "USER") || !strings.Contains(html, "<b>USER</b>") {
		t.Errorf("text = %q html = %q", text, html)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	_, _, html, err := Render("welcome", map[string]any{"Name": "<script>", "Role": "USER"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("html body not escaped")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, _, err := Render("nope", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
