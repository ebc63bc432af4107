package llm

import (
	"context"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ContentTypeText       = "text"
	ContentTypeToolUse    = "tool_use"
	ContentTypeToolResult = "tool_result"

	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// ContentBlock is one piece of a message in a provider-agnostic format.
// Text blocks carry Text; tool_use blocks carry ID, Name and Input;
// tool_result blocks carry ToolUseID and Content.
type ContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
}

// Message is a chat turn made of one or more content blocks.
type Message struct {
	Role    string
	Content []ContentBlock
}

// TextMessage builds a plain single-block message.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: ContentTypeText, Text: text}},
	}
}

// ToolDefinition is the schema a model receives for one callable tool.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request is one model round-trip. Tools may be empty to disable tool use
// for that call.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// Response is the model's reply. StopReason distinguishes a direct answer
// from a tool-use request.
type Response struct {
	Content    []ContentBlock
	StopReason string
}

// Text concatenates all text blocks of the response.
func (r *Response) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == ContentTypeText {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// ToolCalls returns the tool_use blocks in received order.
func (r *Response) ToolCalls() []ContentBlock {
	var calls []ContentBlock
	for _, block := range r.Content {
		if block.Type == ContentTypeToolUse {
			calls = append(calls, block)
		}
	}
	return calls
}

// Provider defines the contract for any generative model backend.
type Provider interface {
	Chat(ctx context.Context, req *Request) (*Response, error)
}
