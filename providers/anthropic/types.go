package anthropic

import (
	"encoding/json"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

// Wire types for the Messages API.

type messagesRequest struct {
	Model         string         `json:"model"`
	MaxTokens     int            `json:"max_tokens"`
	Messages      []messageParam `json:"messages"`
	System        string         `json:"system,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	StopSequences []string       `json:"stop_sequences,omitempty"`
	Tools         []toolParam    `json:"tools,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
}

// toolParam declares a callable function in the request.
type toolParam struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type messageParam struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID           string         `json:"id"`
	Model        string         `json:"model"`
	Role         string         `json:"role"`
	Content      []contentBlock `json:"content"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence"`
	Usage        usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`

	// tool_use blocks
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent is one "data:" payload of the typed SSE stream. The Type
// field discriminates; the remaining fields are populated per type:
//
//	message_start        message
//	content_block_start  index, content_block
//	content_block_delta  index, delta (text_delta | input_json_delta)
//	content_block_stop   index
//	message_delta        delta (stop_reason), usage
//	message_stop         -
//	ping                 -
//	error                error
type streamEvent struct {
	Type string `json:"type"`

	Message      *streamMessage `json:"message,omitempty"`
	Index        int            `json:"index,omitempty"`
	ContentBlock *contentBlock  `json:"content_block,omitempty"`
	Delta        *streamDelta   `json:"delta,omitempty"`
	Usage        *usage         `json:"usage,omitempty"`
	Error        *errorDetail   `json:"error,omitempty"`
}

type streamMessage struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Usage *usage `json:"usage,omitempty"`
}

type streamDelta struct {
	Type string `json:"type"`

	// text_delta
	Text string `json:"text,omitempty"`

	// input_json_delta
	PartialJSON string `json:"partial_json,omitempty"`

	// message_delta
	StopReason   string `json:"stop_reason,omitempty"`
	StopSequence string `json:"stop_sequence,omitempty"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// apiError is the JSON error envelope on non-200 responses.
type apiError struct {
	Error errorDetail `json:"error"`
}

// mapStopReason translates a Messages API stop_reason through a fixed
// table. Unrecognized values never fail the stream.
func mapStopReason(reason string) llmstream.FinishReason {
	switch reason {
	case "end_turn":
		return llmstream.FinishStop
	case "max_tokens":
		return llmstream.FinishLength
	case "stop_sequence":
		return llmstream.FinishStopSequence
	case "tool_use":
		return llmstream.FinishToolCalls
	default:
		return llmstream.FinishUnrecognized
	}
}
