package entity

import "fmt"

// Conversation is the ordered, append-only transcript of one task. Turns are
// never mutated or removed once appended. Tool-result turns must reference a
// call ID issued by a previously appended assistant turn.
type Conversation struct {
	turns   []Message
	pending map[string]string // call ID -> tool name, awaiting a result
}

func NewConversation(systemPrompt, instruction string) *Conversation {
	return &Conversation{
		turns: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: instruction},
		},
		pending: make(map[string]string),
	}
}

// AppendAssistant records the model's turn. Tool calls it carries become
// pending until a matching result turn arrives.
func (c *Conversation) AppendAssistant(msg Message) error {
	if msg.Role != RoleAssistant {
		return fmt.Errorf("expected assistant role, got %q", msg.Role)
	}
	for _, tc := range msg.ToolCalls {
		if tc.ID == "" {
			return fmt.Errorf("tool call %q has no ID", tc.Name)
		}
		if _, dup := c.pending[tc.ID]; dup {
			return fmt.Errorf("duplicate tool call ID %q", tc.ID)
		}
		c.pending[tc.ID] = tc.Name
	}
	c.turns = append(c.turns, msg)
	return nil
}

// AppendToolResult records the outcome of a pending call. The payload is
// stored verbatim; failures are legitimate turns, not errors.
func (c *Conversation) AppendToolResult(callID, toolName, payload string) error {
	name, ok := c.pending[callID]
	if !ok {
		return fmt.Errorf("no pending tool call with ID %q", callID)
	}
	if toolName != "" && toolName != name {
		return fmt.Errorf("tool result name %q does not match call %q (%s)", toolName, callID, name)
	}
	delete(c.pending, callID)
	c.turns = append(c.turns, Message{
		Role:       RoleTool,
		ToolCallID: callID,
		Name:       name,
		Content:    payload,
	})
	return nil
}

// Turns returns a copy of the transcript in append order.
func (c *Conversation) Turns() []Message {
	out := make([]Message, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int { return len(c.turns) }

// PendingCalls reports how many tool calls still await a result.
func (c *Conversation) PendingCalls() int { return len(c.pending) }

// LastAssistantText returns the text of the most recent assistant turn, used
// as the best-available partial answer when a task is cut off.
func (c *Conversation) LastAssistantText() string {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant && c.turns[i].Content != "" {
			return c.turns[i].Content
		}
	}
	return ""
}
