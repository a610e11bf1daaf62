package llmstream

// ProviderID is a typed provider identifier. Typed constants prevent typos
// and give compile-time safety.
type ProviderID string

// Known provider identifiers
const (
	// ProviderOpenAI is OpenAI's Chat Completions API (plain SSE framing).
	ProviderOpenAI ProviderID = "openai"

	// ProviderAnthropic is Anthropic's Messages API (typed SSE framing).
	ProviderAnthropic ProviderID = "anthropic"

	// ProviderOllama is a local Ollama server (NDJSON framing).
	ProviderOllama ProviderID = "ollama"

	// ProviderLorem is the mock lorem ipsum provider for testing.
	ProviderLorem ProviderID = "lorem"
)

// String returns the string representation of the provider ID.
func (p ProviderID) String() string {
	return string(p)
}

// IsValid reports whether the provider ID is a known provider.
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderLorem:
		return true
	default:
		return false
	}
}
