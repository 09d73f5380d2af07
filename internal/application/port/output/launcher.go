package output

import (
	"context"

	"webpilot/internal/domain/entity"
)

// ServerLauncher owns the automation server process: start it, block until
// reachable, and tear it down exactly once. Stop is idempotent and safe to
// call from error paths concurrently with normal shutdown.
type ServerLauncher interface {
	Start(ctx context.Context) (*entity.ServerHandle, error)
	Stop(handle *entity.ServerHandle) error
}
