package ollama

import llmstream "github.com/cascade-ai/cascade-llm-go"

// Wire types for the Ollama chat and embeddings APIs.

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk is one NDJSON line of a streaming chat response. The final
// chunk has done=true and carries the evaluation counters; /api/generate
// responses put their text in Response instead of Message.
type streamChunk struct {
	Model      string       `json:"model"`
	Message    *chatMessage `json:"message,omitempty"`
	Response   string       `json:"response,omitempty"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

// content returns the text fragment regardless of endpoint shape.
func (c *streamChunk) content() string {
	if c.Message != nil {
		return c.Message.Content
	}
	return c.Response
}

// chatResponse is the non-streaming chat reply (stream=false).
type chatResponse struct {
	Model      string      `json:"model"`
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`

	PromptEvalCount int `json:"prompt_eval_count,omitempty"`
	EvalCount       int `json:"eval_count,omitempty"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float32 `json:"embedding"`
}

// apiError is the JSON error envelope on non-200 responses.
type apiError struct {
	Error string `json:"error"`
}

// mapDoneReason translates an Ollama done_reason through a fixed table.
// Unrecognized values never fail the stream.
func mapDoneReason(reason string) llmstream.FinishReason {
	switch reason {
	case "stop":
		return llmstream.FinishStop
	case "length":
		return llmstream.FinishLength
	default:
		return llmstream.FinishUnrecognized
	}
}
