package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"

	"webpilot/internal/domain/entity"
)

func TestConvertMessages_RolesAndToolTurns(t *testing.T) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: "You control a browser."},
		{Role: entity.RoleUser, Content: "Open example.com"},
		{
			Role:    entity.RoleAssistant,
			Content: "Navigating now.",
			ToolCalls: []entity.ToolCall{
				{ID: "call_1", Name: "browser_navigate", Arguments: `{"url":"https://example.com"}`},
			},
		},
		{Role: entity.RoleTool, ToolCallID: "call_1", Name: "browser_navigate", Content: "navigated"},
	}

	result := convertMessages(messages)

	assert.Len(t, result, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, result[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, result[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, result[2].Role)
	assert.Len(t, result[2].Parts, 2, "text part plus tool-call part")
	assert.Equal(t, llms.ChatMessageTypeTool, result[3].Role)

	toolResp, ok := result[3].Parts[0].(llms.ToolCallResponse)
	assert.True(t, ok)
	assert.Equal(t, "call_1", toolResp.ToolCallID)
}

func TestConvertResponseChoice_GeneratesMissingIDs(t *testing.T) {
	choice := &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{
			{FunctionCall: &llms.FunctionCall{Name: "browser_click", Arguments: `{"selector":"#x"}`}},
		},
	}

	msg := convertResponseChoice(choice)

	assert.Len(t, msg.ToolCalls, 1)
	assert.NotEmpty(t, msg.ToolCalls[0].ID, "Gemini calls without IDs must get one")
	assert.Equal(t, "browser_click", msg.ToolCalls[0].Name)
}

func TestConvertResponseChoice_FinalAnswer(t *testing.T) {
	msg := convertResponseChoice(&llms.ContentChoice{Content: "All done."})

	assert.Equal(t, entity.RoleAssistant, msg.Role)
	assert.Equal(t, "All done.", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestConvertTools(t *testing.T) {
	tools := convertTools([]entity.ToolDefinition{
		{Name: "browser_snapshot", Description: "Capture page state", Parameters: map[string]interface{}{"type": "object"}},
	})

	assert.Len(t, tools, 1)
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "browser_snapshot", tools[0].Function.Name)
}
