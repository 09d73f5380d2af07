package prompts

import (
	"bytes"
	"text/template"

	"webpilot/internal/domain/entity"
)

type ToolInfo struct {
	Name        string
	Description string
}

type SystemPromptData struct {
	Tools []ToolInfo
}

// GenerateSystemPrompt renders the base template with the session's tool
// catalog, in the order the server advertised it.
func GenerateSystemPrompt(baseTemplate string, catalog *entity.ToolCatalog) (string, error) {
	infos := make([]ToolInfo, 0, catalog.Len())
	for _, tool := range catalog.All() {
		infos = append(infos, ToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
		})
	}

	tmpl, err := template.New("system").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, SystemPromptData{Tools: infos}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
