// Package runner drives one task through the decide/invoke loop: the model
// picks a tool or answers, tool results (failures included) go back into the
// conversation, and an iteration guard stops runaway loops.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"webpilot/internal/apperrors"
	"webpilot/internal/application/port/input"
	"webpilot/internal/application/port/output"
	"webpilot/internal/application/service"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/prompts"
)

var _ input.TaskExecutor = (*UseCase)(nil)

type Config struct {
	MaxIterations        int // decide steps before the task is declared stuck
	MaxObservationLen    int
	Temperature          float32
	SystemPromptTemplate string
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:        30,
		MaxObservationLen:    20000,
		SystemPromptTemplate: prompts.DefaultSystemPrompt,
	}
}

type UseCase struct {
	llm             output.LLMPort
	session         output.ToolSession
	logger          output.LoggerPort
	userInteraction output.UserInteractionPort
	cfg             Config
}

func New(
	llm output.LLMPort,
	session output.ToolSession,
	logger output.LoggerPort,
	userInteraction output.UserInteractionPort,
	cfg Config,
) *UseCase {
	return &UseCase{
		llm:             llm,
		session:         session,
		logger:          logger,
		userInteraction: userInteraction,
		cfg:             cfg,
	}
}

// Execute runs one full task. Each call builds a fresh conversation; nothing
// carries over between tasks. On an iteration overflow the returned result
// still carries the last assistant text as a partial answer, alongside the
// ITERATION_LIMIT_EXCEEDED error.
func (uc *UseCase) Execute(ctx context.Context, instruction string) (*input.ExecuteResult, error) {
	catalog := uc.session.Catalog()

	systemPrompt, err := prompts.GenerateSystemPrompt(uc.cfg.SystemPromptTemplate, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to generate system prompt: %w", err)
	}

	state := &entity.TaskState{
		ID:           uuid.NewString(),
		Instruction:  instruction,
		Conversation: entity.NewConversation(systemPrompt, instruction),
		Status:       entity.TaskStatusRunning,
	}

	log := uc.logger.WithField("task_id", state.ID)
	log.Info("Task started", "instruction", instruction)

	toolDefs := service.Definitions(catalog)

	for iter := 1; iter <= uc.cfg.MaxIterations; iter++ {
		state.Iterations = iter
		uc.userInteraction.ShowIteration(ctx, iter, uc.cfg.MaxIterations)
		log.Debug("Deciding", "iteration", iter)

		resp, err := uc.llm.Chat(ctx, output.ChatRequest{
			Messages:    state.Conversation.Turns(),
			Tools:       toolDefs,
			Temperature: uc.cfg.Temperature,
		})
		if err != nil {
			state.Status = entity.TaskStatusFailed
			return nil, fmt.Errorf("llm request failed: %w", err)
		}

		if resp.Message.Content != "" {
			uc.userInteraction.ShowThinking(ctx, resp.Message.Content)
		}

		if err := state.Conversation.AppendAssistant(resp.Message); err != nil {
			state.Status = entity.TaskStatusFailed
			return nil, fmt.Errorf("malformed assistant turn: %w", err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			state.Status = entity.TaskStatusCompleted
			log.Info("Task completed", "iterations", iter)
			return &input.ExecuteResult{
				FinalAnswer: resp.Message.Content,
				Iterations:  iter,
			}, nil
		}

		for _, tc := range resp.Message.ToolCalls {
			uc.userInteraction.ShowToolStart(ctx, tc.Name, tc.Arguments)

			observation, isError, fatal := uc.executeTool(ctx, log, tc)
			if fatal != nil {
				state.Status = entity.TaskStatusFailed
				return nil, fatal
			}

			uc.userInteraction.ShowToolResult(ctx, tc.Name, observation, isError)

			if err := state.Conversation.AppendToolResult(tc.ID, tc.Name, observation); err != nil {
				state.Status = entity.TaskStatusFailed
				return nil, fmt.Errorf("record tool result: %w", err)
			}
		}
	}

	state.Status = entity.TaskStatusFailed
	log.Warn("Iteration limit reached", "max", uc.cfg.MaxIterations)
	return &input.ExecuteResult{
			FinalAnswer: state.Conversation.LastAssistantText(),
			Iterations:  uc.cfg.MaxIterations,
		}, apperrors.Newf(apperrors.CodeIterationLimitExceeded,
			"task did not finish within %d iterations", uc.cfg.MaxIterations)
}

// executeTool resolves one call. Unknown tools never reach the session; the
// model gets a correctable failure turn instead. Recoverable invoke errors
// become failure turns too; anything else aborts the task.
func (uc *UseCase) executeTool(ctx context.Context, log output.LoggerPort, tc entity.ToolCall) (string, bool, error) {
	if !uc.session.Catalog().Has(tc.Name) {
		log.Warn("Unknown tool requested", "name", tc.Name)
		msg := apperrors.Newf(apperrors.CodeUnknownTool, "unknown tool '%s'", tc.Name)
		return "Error: " + msg.Message(), true, nil
	}

	log.Info("Executing tool", "name", tc.Name, "args", tc.Arguments)

	result, err := uc.session.Invoke(ctx, tc)
	if err != nil {
		if apperrors.Recoverable(err) {
			log.Warn("Tool invocation failed, surfacing to model", "name", tc.Name, "error", err)
			return "Error: " + err.Error(), true, nil
		}
		log.Error("Tool invocation failed fatally", "name", tc.Name, "error", err)
		return "", false, fmt.Errorf("invoke %s: %w", tc.Name, err)
	}

	observation := result.Payload
	if len(observation) > uc.cfg.MaxObservationLen {
		observation = observation[:uc.cfg.MaxObservationLen] + "\n... (truncated)"
	}
	if result.IsError {
		if !strings.HasPrefix(observation, "Error") {
			observation = "Error: " + observation
		}
		return observation, true, nil
	}

	log.Debug("Tool completed", "name", tc.Name, "resultLen", len(observation))
	return observation, false, nil
}
