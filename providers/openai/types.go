package openai

import (
	"encoding/json"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

// Wire types for the Chat Completions API.

type chatCompletionRequest struct {
	Model         string           `json:"model"`
	Messages      []chatMessage    `json:"messages"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	MaxTokens     *int             `json:"max_completion_tokens,omitempty"`
	Stop          []string         `json:"stop,omitempty"`
	Tools         []toolDefinition `json:"tools,omitempty"`
	Stream        bool             `json:"stream,omitempty"`
	StreamOptions *streamOptions   `json:"stream_options,omitempty"`
}

// toolDefinition declares a callable function in the request.
type toolDefinition struct {
	Type     string              `json:"type"` // always "function"
	Function toolDefinitionEntry `json:"function"`
}

type toolDefinitionEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []responseChoice `json:"choices"`
	Usage   *usage           `json:"usage"`
}

type responseChoice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

type responseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// streamChunk is one "chat.completion.chunk" SSE payload.
type streamChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *usage        `json:"usage"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Role      *string         `json:"role,omitempty"`
	Content   *string         `json:"content,omitempty"`
	ToolCalls []toolCallDelta `json:"tool_calls,omitempty"`
}

type toolCallDelta struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Function toolFunction `json:"function"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *usage) normalized() *llmstream.Usage {
	return &llmstream.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// apiError is the JSON error envelope returned on non-200 responses and,
// occasionally, inside the SSE stream itself.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// mapFinishReason translates a Chat Completions finish_reason through a
// fixed table. Unrecognized values never fail the stream.
func mapFinishReason(reason string) llmstream.FinishReason {
	switch reason {
	case "stop":
		return llmstream.FinishStop
	case "length":
		return llmstream.FinishLength
	case "tool_calls", "function_call":
		return llmstream.FinishToolCalls
	case "content_filter":
		return llmstream.FinishContentFilter
	default:
		return llmstream.FinishUnrecognized
	}
}
