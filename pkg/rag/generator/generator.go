package generator

import (
	"context"
	"fmt"

	"course-assistant-be/internal/entity"
	"course-assistant-be/internal/pkg/logger"
	"course-assistant-be/pkg/llm"
	"course-assistant-be/pkg/rag/tools"
)

const systemPrompt = `You are an AI assistant specialized in course materials and educational content with access to a comprehensive search tool for course information.

Search Tool Usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- Answer general knowledge questions without searching
- One search per query maximum
- Synthesize search results into accurate, fact-based responses
- If the search yields no results, state this clearly without offering alternatives

Response requirements:
- Be brief, concise and focused
- Do not mention the search process in your answer
- Provide direct answers only, without meta-commentary`

const fallbackAnswer = "I wasn't able to complete the search. Please try rephrasing your question."

// Generator runs the bounded tool-use conversation: one model call with
// tool schemas, at most one round of tool execution, then a final call
// without tools.
type Generator struct {
	provider  llm.Provider
	model     string
	maxTokens int
	log       logger.ILogger
}

func New(provider llm.Provider, model string, log logger.ILogger) *Generator {
	return &Generator{
		provider:  provider,
		model:     model,
		maxTokens: 800,
		log:       log,
	}
}

// GenerateResponse answers one prompt, dispatching tool calls through the
// registry. Sources accumulated by tool executions are returned explicitly.
func (g *Generator) GenerateResponse(ctx context.Context, prompt, history string, registry *tools.Registry) (string, []entity.Source, error) {
	system := systemPrompt
	if history != "" {
		system = fmt.Sprintf("%s\n\nPrevious conversation:\n%s", systemPrompt, history)
	}

	messages := []llm.Message{llm.TextMessage(llm.RoleUser, prompt)}

	first, err := g.provider.Chat(ctx, &llm.Request{
		Model:       g.model,
		System:      system,
		Messages:    messages,
		Tools:       registry.Definitions(),
		Temperature: 0,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("model call failed: %w", err)
	}

	if first.StopReason != llm.StopReasonToolUse {
		return first.Text(), nil, nil
	}

	// Execute every requested call in received order, then bundle all
	// results into a single follow-up user message.
	var sources []entity.Source
	var resultBlocks []llm.ContentBlock
	for _, call := range first.ToolCalls() {
		result := registry.Execute(ctx, call.Name, call.Input)
		sources = append(sources, result.Sources...)
		resultBlocks = append(resultBlocks, llm.ContentBlock{
			Type:      llm.ContentTypeToolResult,
			ToolUseID: call.ID,
			Content:   result.Output,
		})
	}

	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: first.Content},
		llm.Message{Role: llm.RoleUser, Content: resultBlocks},
	)

	// Second call goes out without tool schemas: single-round tool use only.
	final, err := g.provider.Chat(ctx, &llm.Request{
		Model:       g.model,
		System:      system,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("follow-up model call failed: %w", err)
	}

	answer := final.Text()
	if len(final.ToolCalls()) > 0 {
		g.log.Warn("generator", "model requested tools after tool round, ignoring", map[string]interface{}{
			"calls": len(final.ToolCalls()),
		})
	}
	if answer == "" {
		answer = fallbackAnswer
	}
	return answer, sources, nil
}
