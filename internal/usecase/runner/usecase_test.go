package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webpilot/internal/apperrors"
	"webpilot/internal/application/port/output"
	"webpilot/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                       {}
func (nopLogger) Info(string, ...any)                        {}
func (nopLogger) Warn(string, ...any)                        {}
func (nopLogger) Error(string, ...any)                       {}
func (l nopLogger) WithField(string, any) output.LoggerPort  { return l }
func (l nopLogger) WithFields(map[string]any) output.LoggerPort { return l }
func (nopLogger) Close() error                               { return nil }

type nopUI struct{}

func (nopUI) ShowIteration(context.Context, int, int)            {}
func (nopUI) ShowToolStart(context.Context, string, string)      {}
func (nopUI) ShowToolResult(context.Context, string, string, bool) {}
func (nopUI) ShowThinking(context.Context, string)               {}

// scriptedLLM replays canned responses in order and records every request.
type scriptedLLM struct {
	responses []output.ChatResponse
	err       error
	requests  []output.ChatRequest
}

func (f *scriptedLLM) Chat(_ context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	resp := f.responses[idx]
	return &resp, nil
}

type fakeSession struct {
	catalog *entity.ToolCatalog
	results map[string]*entity.ToolResult
	err     error
	invoked []entity.ToolCall
}

func (f *fakeSession) Catalog() *entity.ToolCatalog { return f.catalog }

func (f *fakeSession) Invoke(_ context.Context, call entity.ToolCall) (*entity.ToolResult, error) {
	f.invoked = append(f.invoked, call)
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[call.Name]; ok {
		out := *r
		out.CallID = call.ID
		return &out, nil
	}
	return &entity.ToolResult{CallID: call.ID, Payload: "ok"}, nil
}

func (f *fakeSession) Close() error { return nil }

func browserCatalog() *entity.ToolCatalog {
	return entity.NewToolCatalog([]entity.ToolDescriptor{
		{Name: "browser_navigate", Description: "Navigate to a URL"},
		{Name: "browser_snapshot", Description: "Capture page snapshot"},
	})
}

func answer(text string) output.ChatResponse {
	return output.ChatResponse{Message: entity.Message{
		Role:    entity.RoleAssistant,
		Content: text,
	}}
}

func callTool(id, name, args string) output.ChatResponse {
	return output.ChatResponse{Message: entity.Message{
		Role:      entity.RoleAssistant,
		ToolCalls: []entity.ToolCall{{ID: id, Name: name, Arguments: args}},
	}}
}

func newRunner(llm *scriptedLLM, session *fakeSession, cfg Config) *UseCase {
	return New(llm, session, nopLogger{}, nopUI{}, cfg)
}

func TestExecute_ImmediateAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{answer("The page title is Example.")}}
	session := &fakeSession{catalog: browserCatalog()}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "what is the title?")

	require.NoError(t, err)
	assert.Equal(t, "The page title is Example.", result.FinalAnswer)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, session.invoked)
}

func TestExecute_NavigateThenAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		callTool("call_1", "browser_navigate", `{"url":"https://example.com"}`),
		answer("Done, the page loaded."),
	}}
	session := &fakeSession{
		catalog: browserCatalog(),
		results: map[string]*entity.ToolResult{
			"browser_navigate": {Payload: "Navigated to https://example.com"},
		},
	}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "open example.com")

	require.NoError(t, err)
	assert.Equal(t, "Done, the page loaded.", result.FinalAnswer)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, session.invoked, 1)
	assert.Equal(t, "browser_navigate", session.invoked[0].Name)

	// The second model request must carry the tool observation back.
	require.Len(t, llm.requests, 2)
	turns := llm.requests[1].Messages
	last := turns[len(turns)-1]
	assert.Equal(t, entity.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "Navigated to https://example.com", last.Content)
}

func TestExecute_UnknownToolNeverReachesSession(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		callTool("call_1", "browser_teleport", `{}`),
		answer("That action is not available."),
	}}
	session := &fakeSession{catalog: browserCatalog()}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "teleport")

	require.NoError(t, err)
	assert.Equal(t, "That action is not available.", result.FinalAnswer)
	assert.Empty(t, session.invoked)

	turns := llm.requests[1].Messages
	last := turns[len(turns)-1]
	assert.Equal(t, entity.RoleTool, last.Role)
	assert.Contains(t, last.Content, "unknown tool 'browser_teleport'")
}

func TestExecute_RecoverableInvokeErrorFedBack(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		callTool("call_1", "browser_snapshot", `{}`),
		answer("Could not capture the page."),
	}}
	session := &fakeSession{
		catalog: browserCatalog(),
		err:     apperrors.New(apperrors.CodeTransportError, "request failed after 3 attempts"),
	}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "snapshot")

	require.NoError(t, err)
	assert.Equal(t, "Could not capture the page.", result.FinalAnswer)

	turns := llm.requests[1].Messages
	last := turns[len(turns)-1]
	assert.True(t, strings.HasPrefix(last.Content, "Error:"))
	assert.Contains(t, last.Content, "request failed after 3 attempts")
}

func TestExecute_FatalInvokeErrorAborts(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		callTool("call_1", "browser_snapshot", `{}`),
	}}
	session := &fakeSession{
		catalog: browserCatalog(),
		err:     apperrors.New(apperrors.CodeConnectionError, "session closed"),
	}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "snapshot")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConnectionError))
	assert.Len(t, llm.requests, 1)
}

func TestExecute_IterationLimit(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		{Message: entity.Message{
			Role:      entity.RoleAssistant,
			Content:   "Still looking around.",
			ToolCalls: []entity.ToolCall{{ID: "call_1", Name: "browser_snapshot", Arguments: `{}`}},
		}},
		{Message: entity.Message{
			Role:      entity.RoleAssistant,
			ToolCalls: []entity.ToolCall{{ID: "call_2", Name: "browser_snapshot", Arguments: `{}`}},
		}},
	}}
	session := &fakeSession{catalog: browserCatalog()}

	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	result, err := newRunner(llm, session, cfg).Execute(context.Background(), "loop forever")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeIterationLimitExceeded))
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, "Still looking around.", result.FinalAnswer)
	assert.Len(t, llm.requests, 3)
}

func TestExecute_BackendErrorAborts(t *testing.T) {
	llm := &scriptedLLM{err: apperrors.New(apperrors.CodeBackendError, "model unavailable")}
	session := &fakeSession{catalog: browserCatalog()}

	result, err := newRunner(llm, session, DefaultConfig()).Execute(context.Background(), "anything")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBackendError))
}

func TestExecute_LongObservationTruncated(t *testing.T) {
	llm := &scriptedLLM{responses: []output.ChatResponse{
		callTool("call_1", "browser_snapshot", `{}`),
		answer("done"),
	}}
	session := &fakeSession{
		catalog: browserCatalog(),
		results: map[string]*entity.ToolResult{
			"browser_snapshot": {Payload: strings.Repeat("x", 5000)},
		},
	}

	cfg := DefaultConfig()
	cfg.MaxObservationLen = 100
	_, err := newRunner(llm, session, cfg).Execute(context.Background(), "snapshot")

	require.NoError(t, err)
	turns := llm.requests[1].Messages
	last := turns[len(turns)-1]
	assert.True(t, strings.HasSuffix(last.Content, "... (truncated)"))
	assert.Less(t, len(last.Content), 200)
}
