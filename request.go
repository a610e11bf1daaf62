package llmstream

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatRequest contains the parameters for one generation request.
type ChatRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Model is the model identifier (e.g., "gpt-4o-mini", "claude-sonnet-4-5", "llama3").
	Model string

	// Params carries sampling parameters. Nil means provider defaults.
	// Provider adapters extract what they support from this struct.
	Params *Parameters

	// Tools declares functions the model may call. When the model chooses
	// one, the call arrives as EventToolCallDelta fragments on a stream, or
	// as complete ToolCalls on a blocking response. Execution is the
	// caller's job.
	Tools []Tool
}

// Tool declares one callable function to the model.
type Tool struct {
	// Name identifies the function.
	Name string

	// Description tells the model when to use it.
	Description string

	// Parameters is the JSON Schema for the function's arguments.
	Parameters json.RawMessage
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Parameters are the provider-agnostic sampling controls. Zero-valued
// pointer fields are omitted from provider requests.
type Parameters struct {
	// Temperature controls randomness (provider-specific range, usually 0-2).
	Temperature *float64

	// TopP is the nucleus sampling threshold.
	TopP *float64

	// TopK limits sampling to the K most likely tokens (not all providers).
	TopK *int

	// MaxTokens caps the completion length.
	MaxTokens *int

	// StopSequences stop generation when produced.
	StopSequences []string
}

// GetMaxTokens returns MaxTokens or def when unset.
func (p *Parameters) GetMaxTokens(def int) int {
	if p == nil || p.MaxTokens == nil {
		return def
	}
	return *p.MaxTokens
}

// Validate checks parameter ranges that hold across every provider.
func (p *Parameters) Validate() error {
	if p == nil {
		return nil
	}
	if p.Temperature != nil && *p.Temperature < 0 {
		return &ValidationError{
			Field:  "temperature",
			Value:  *p.Temperature,
			Reason: "must be non-negative",
			Err:    ErrInvalidRequest,
		}
	}
	if p.TopP != nil && (*p.TopP <= 0 || *p.TopP > 1) {
		return &ValidationError{
			Field:  "top_p",
			Value:  *p.TopP,
			Reason: "must be in (0, 1]",
			Err:    ErrInvalidRequest,
		}
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return &ValidationError{
			Field:  "max_tokens",
			Value:  *p.MaxTokens,
			Reason: "must be positive",
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}
