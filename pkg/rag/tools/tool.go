package tools

import (
	"context"
	"fmt"

	"course-assistant-be/internal/entity"
	"course-assistant-be/pkg/llm"
)

// Result is one tool execution outcome. Sources travel with the result
// instead of living on the tool, so concurrent queries never share state.
type Result struct {
	Output  string
	Sources []entity.Source
}

// Tool is a named capability the model can invoke mid-conversation.
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) Result
}

// Registry maps tool names to implementations and dispatches model-issued
// calls.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register rejects tools whose schema lacks a name; naming is validated
// here, not at lookup time.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = tool
	return nil
}

// Definitions returns tool schemas in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches one call. An unknown name yields a textual sentinel so
// the model conversation can recover instead of aborting.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) Result {
	tool, ok := r.tools[name]
	if !ok {
		return Result{Output: fmt.Sprintf("Tool '%s' not found", name)}
	}
	return tool.Execute(ctx, args)
}
