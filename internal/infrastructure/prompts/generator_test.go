package prompts

import (
	"strings"
	"testing"

	"webpilot/internal/domain/entity"
)

func testCatalog() *entity.ToolCatalog {
	return entity.NewToolCatalog([]entity.ToolDescriptor{
		{Name: "browser_navigate", Description: "Navigate to a URL"},
		{Name: "browser_click", Description: "Click an element"},
		{Name: "browser_snapshot", Description: "Capture the current page state"},
	})
}

func TestGenerateSystemPrompt_ListsTools(t *testing.T) {
	out, err := GenerateSystemPrompt(DefaultSystemPrompt, testCatalog())
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"browser_navigate: Navigate to a URL",
		"browser_click: Click an element",
		"browser_snapshot: Capture the current page state",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateSystemPrompt_PreservesServerOrder(t *testing.T) {
	out, err := GenerateSystemPrompt("{{range .Tools}}{{.Name}};{{end}}", testCatalog())
	if err != nil {
		t.Fatal(err)
	}

	if out != "browser_navigate;browser_click;browser_snapshot;" {
		t.Errorf("tool order changed: %s", out)
	}
}

func TestGenerateSystemPrompt_EmptyCatalog(t *testing.T) {
	out, err := GenerateSystemPrompt(DefaultSystemPrompt, entity.NewToolCatalog(nil))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Available tools:") {
		t.Error("tool section should be omitted for an empty catalog")
	}
}

func TestGenerateSystemPrompt_BadTemplate(t *testing.T) {
	if _, err := GenerateSystemPrompt("{{.Broken", testCatalog()); err == nil {
		t.Error("invalid template must error")
	}
}
