package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

// ToolConnector opens a logical session against a reachable automation
// server and fetches its tool catalog.
type ToolConnector interface {
	Open(ctx context.Context, handle *entity.ServerHandle) (ToolSession, error)
}

// ToolSession executes tool calls over an open session. The catalog is
// fetched once at open time and cached for the session's lifetime.
type ToolSession interface {
	Catalog() *entity.ToolCatalog
	Invoke(ctx context.Context, call entity.ToolCall) (*entity.ToolResult, error)
	Close() error
}
