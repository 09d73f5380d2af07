package openaichat

import (
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"webpilot/internal/domain/entity"
)

func TestConvertResponseMessage_WithContent(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role:    "assistant",
		Content: "The weather in Paris is sunny.",
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Equal(t, "The weather in Paris is sunny.", result.Content)
	assert.Empty(t, result.ToolCalls)
}

func TestConvertResponseMessage_WithToolCalls(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role: "assistant",
		ToolCalls: []openai.ToolCall{
			{
				ID:   "call_123",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "browser_navigate",
					Arguments: `{"url":"https://example.com"}`,
				},
			},
		},
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_123", result.ToolCalls[0].ID)
	assert.Equal(t, "browser_navigate", result.ToolCalls[0].Name)
	assert.JSONEq(t, `{"url":"https://example.com"}`, result.ToolCalls[0].Arguments)
}

func TestConvertMessages_RoundTripsToolTurns(t *testing.T) {
	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: "You control a browser."},
		{Role: entity.RoleUser, Content: "Open example.com"},
		{
			Role: entity.RoleAssistant,
			ToolCalls: []entity.ToolCall{
				{ID: "call_1", Name: "browser_navigate", Arguments: `{"url":"https://example.com"}`},
			},
		},
		{Role: entity.RoleTool, ToolCallID: "call_1", Name: "browser_navigate", Content: "navigated"},
	}

	result := convertMessages(messages)

	assert.Len(t, result, 4)
	assert.Equal(t, "system", result[0].Role)
	assert.Len(t, result[2].ToolCalls, 1)
	assert.Equal(t, "call_1", result[2].ToolCalls[0].ID)
	assert.Equal(t, "tool", result[3].Role)
	assert.Equal(t, "call_1", result[3].ToolCallID)
	assert.Equal(t, "browser_navigate", result[3].Name)
}

func TestConvertTools(t *testing.T) {
	tools := convertTools([]entity.ToolDefinition{
		{
			Name:        "browser_click",
			Description: "Click an element",
			Parameters:  map[string]interface{}{"type": "object"},
		},
	})

	assert.Len(t, tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, tools[0].Type)
	assert.Equal(t, "browser_click", tools[0].Function.Name)
}
