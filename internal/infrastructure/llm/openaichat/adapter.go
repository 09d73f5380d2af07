// Package openaichat implements the model-backend port on the OpenAI chat
// completions API. The same adapter serves OpenAI itself, Azure deployments
// and OpenRouter, differing only in client configuration.
package openaichat

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"webpilot/internal/apperrors"
	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

var _ output.LLMPort = (*Adapter)(nil)

type Adapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string // empty = api.openai.com
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{APIKey: apiKey, Model: model}
}

// OpenRouterConfig points the adapter at OpenRouter's OpenAI-compatible API.
func OpenRouterConfig(apiKey, model string) Config {
	return Config{APIKey: apiKey, Model: model, BaseURL: openRouterBaseURL}
}

func New(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// NewAzure targets an Azure OpenAI deployment; the model name doubles as the
// deployment name, which is how the upstream client resolves the URL.
func NewAzure(apiKey, endpoint, deployment string, logger output.LoggerPort) *Adapter {
	config := openai.DefaultAzureConfig(apiKey, endpoint)
	return &Adapter{
		client: openai.NewClientWithConfig(config),
		model:  deployment,
		logger: logger,
	}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	messages := convertMessages(req.Messages)
	tools := convertTools(req.Tools)

	if a.logger != nil {
		a.logger.Debug("Creating chat completion",
			"model", a.model, "messagesCount", len(messages), "toolsCount", len(tools))
	}

	oreq := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if len(tools) > 0 {
		oreq.Tools = tools
		oreq.ToolChoice = "auto"
	}

	resp, err := a.client.CreateChatCompletion(ctx, oreq)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBackendError, err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.CodeBackendError, "no choices in response")
	}

	return &output.ChatResponse{
		Message: convertResponseMessage(resp.Choices[0].Message),
	}, nil
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}
		if msg.Name != "" {
			oaiMsg.Name = msg.Name
		}
		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		result = append(result, oaiMsg)
	}
	return result
}

func convertTools(tools []entity.ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}

func convertResponseMessage(msg openai.ChatCompletionMessage) entity.Message {
	result := entity.Message{
		Role:    entity.MessageRole(msg.Role),
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return result
}
