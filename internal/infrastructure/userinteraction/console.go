package userinteraction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"webpilot/internal/application/port/output"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

// ConsoleUserInteraction renders task progress on the terminal while the
// agent loop runs. Pure display; it never reads input.
type ConsoleUserInteraction struct{}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return &ConsoleUserInteraction{}
}

func (u *ConsoleUserInteraction) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n--- Step %d/%d ---\n", iteration, maxIterations)
}

func (u *ConsoleUserInteraction) ShowThinking(ctx context.Context, content string) {
	if content == "" {
		return
	}
	blue := color.New(color.FgBlue)
	blue.Print("Thinking: ")
	color.New(color.Faint).Println(truncate(content, 500))
}

func (u *ConsoleUserInteraction) ShowToolStart(ctx context.Context, toolName, arguments string) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Printf("-> %s\n", toolName)

	if summary := formatArguments(arguments); summary != "" {
		color.New(color.Faint).Printf("   %s\n", summary)
	}
}

func (u *ConsoleUserInteraction) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		red := color.New(color.FgRed)
		red.Print("   failed: ")
		color.New(color.Faint).Println(truncate(result, 300))
		return
	}
	green := color.New(color.FgGreen)
	green.Printf("   ok: %s\n", truncate(result, 200))
}

// formatArguments flattens a JSON argument object into "k=v" pairs; raw text
// is shown as-is when the arguments are not an object.
func formatArguments(arguments string) string {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return truncate(arguments, 120)
	}
	out := ""
	for k, v := range args {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, truncate(fmt.Sprintf("%v", v), 80))
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
