package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

// LLMPort is the uniform model-backend contract. One call, one assistant
// message: either tool calls or final text. Backend failures surface as
// BACKEND_ERROR and are never retried here.
type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	Temperature float32
}

type ChatResponse struct {
	Message entity.Message
}
