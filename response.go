package llmstream

// ToolCall is a complete tool invocation requested by the model in a
// blocking response.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ChatResponse is the provider's complete (non-streaming) answer.
type ChatResponse struct {
	// Text is the concatenated assistant text content.
	Text string

	// ToolCalls lists any tool invocations the model requested.
	ToolCalls []ToolCall

	// Model is the model that produced the response (may differ from the
	// request if the provider aliases model names).
	Model string

	// Usage holds token accounting, when the provider reports it.
	Usage *Usage

	// FinishReason is the normalized stop reason.
	FinishReason FinishReason
}

// Embedding is one embedding vector, indexed by its input position.
type Embedding struct {
	Vector []float32
	Index  int
}
