package entity

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskState is owned by the orchestrator for the duration of one run. It is
// created per task and discarded on completion or failure, never shared.
type TaskState struct {
	ID           string
	Instruction  string
	Conversation *Conversation
	Iterations   int
	Status       TaskStatus
}

type TaskResult struct {
	TaskID      string
	FinalAnswer string
	Iterations  int
}
