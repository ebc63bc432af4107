package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"course-assistant-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ llm.Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"function"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaProvider) Chat(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model := o.ModelName
	if req.Model != "" {
		model = req.Model
	}

	var messages []ollamaMessage
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, flattenMessage(msg)...)
	}

	payload := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		payload.Options.NumPredict = req.MaxTokens
	}
	for _, tool := range req.Tools {
		payload.Tools = append(payload.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := &llm.Response{StopReason: llm.StopReasonEndTurn}
	if ollamaResp.Message.Content != "" {
		result.Content = append(result.Content, llm.ContentBlock{
			Type: llm.ContentTypeText,
			Text: ollamaResp.Message.Content,
		})
	}
	for i, call := range ollamaResp.Message.ToolCalls {
		result.Content = append(result.Content, llm.ContentBlock{
			Type:  llm.ContentTypeToolUse,
			ID:    fmt.Sprintf("call_%d", i),
			Name:  call.Function.Name,
			Input: call.Function.Arguments,
		})
	}
	if len(ollamaResp.Message.ToolCalls) > 0 {
		result.StopReason = llm.StopReasonToolUse
	}
	return result, nil
}

// flattenMessage maps block-structured messages onto Ollama's flat chat
// roles: tool results become "tool" messages, tool_use blocks reattach to
// the assistant turn.
func flattenMessage(msg llm.Message) []ollamaMessage {
	var out []ollamaMessage
	var text strings.Builder
	var toolCalls []ollamaToolCall

	role := msg.Role
	if role == "model" {
		role = llm.RoleAssistant
	}

	for _, block := range msg.Content {
		switch block.Type {
		case llm.ContentTypeText:
			text.WriteString(block.Text)
		case llm.ContentTypeToolUse:
			call := ollamaToolCall{}
			call.Function.Name = block.Name
			call.Function.Arguments = block.Input
			toolCalls = append(toolCalls, call)
		case llm.ContentTypeToolResult:
			out = append(out, ollamaMessage{Role: "tool", Content: block.Content})
		}
	}

	if text.Len() > 0 || len(toolCalls) > 0 {
		flat := ollamaMessage{Role: role, Content: text.String(), ToolCalls: toolCalls}
		out = append([]ollamaMessage{flat}, out...)
	}
	return out
}
