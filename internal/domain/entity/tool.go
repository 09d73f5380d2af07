package entity

// ToolDescriptor is one advertised automation operation: its name, a
// human-readable description for the model, and a JSON-schema argument
// specification passed through from the server.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// ToolCatalog is the set of tools a server advertises, fetched once per
// session and immutable afterwards. Server ordering is preserved.
type ToolCatalog struct {
	list  []ToolDescriptor
	index map[string]ToolDescriptor
}

func NewToolCatalog(tools []ToolDescriptor) *ToolCatalog {
	c := &ToolCatalog{
		list:  make([]ToolDescriptor, 0, len(tools)),
		index: make(map[string]ToolDescriptor, len(tools)),
	}
	for _, t := range tools {
		if _, dup := c.index[t.Name]; dup {
			continue
		}
		c.list = append(c.list, t)
		c.index[t.Name] = t
	}
	return c
}

func (c *ToolCatalog) Get(name string) (ToolDescriptor, bool) {
	t, ok := c.index[name]
	return t, ok
}

func (c *ToolCatalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

func (c *ToolCatalog) All() []ToolDescriptor {
	out := make([]ToolDescriptor, len(c.list))
	copy(out, c.list)
	return out
}

func (c *ToolCatalog) Len() int { return len(c.list) }

// ToolResult is the server's response to one tool call. IsError marks an
// application-level failure (element not found, navigation refused); the
// payload still goes back into the conversation for the model to reason about.
type ToolResult struct {
	CallID  string
	Payload string
	IsError bool
}
