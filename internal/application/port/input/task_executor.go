package input

import "context"

type ExecuteResult struct {
	FinalAnswer string
	Iterations  int
}

// TaskExecutor runs one full task cycle: seed, decide/invoke loop, final
// answer. Each call is independent; nothing persists between tasks.
type TaskExecutor interface {
	Execute(ctx context.Context, instruction string) (*ExecuteResult, error)
}
