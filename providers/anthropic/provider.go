// Package anthropic implements the Anthropic Messages provider. Streaming
// responses use the typed SSE framing: "data: {json}" payloads carrying a
// "type" discriminant, with "event: message_stop" as an alternative stream
// terminator.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

// defaultMaxTokens applies when the request does not set one; the Messages
// API requires max_tokens.
const defaultMaxTokens = 4096

// Provider is the Anthropic adapter.
type Provider struct {
	cfg        *Config
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an Anthropic provider from the given configuration.
func New(cfg *Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        cfg.logger(),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() llmstream.ProviderID {
	return llmstream.ProviderAnthropic
}

// SupportsModel reports whether the model is an Anthropic model: catalog
// entries or the "claude-" prefix.
func (p *Provider) SupportsModel(model string) bool {
	if _, ok := llmstream.GetCatalogRegistry().Lookup(llmstream.ProviderAnthropic, model); ok {
		return true
	}
	return strings.HasPrefix(model, "claude-")
}

// Chat generates a complete response (blocking).
func (p *Provider) Chat(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.ChatResponse, error) {
	apiReq, err := p.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.buildHTTPRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var message messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return nil, fmt.Errorf("anthropic response decode failed: %w", err)
	}
	return convertResponse(&message), nil
}

// buildRequest translates the library request into the Messages wire
// format. System messages are lifted out of the message list into the
// top-level system field, as the API requires.
func (p *Provider) buildRequest(req *llmstream.ChatRequest, stream bool) (*messagesRequest, error) {
	if !p.SupportsModel(req.Model) {
		return nil, &llmstream.ModelError{
			Model:    req.Model,
			Provider: p.Name().String(),
			Reason:   "model not recognized as an Anthropic model (must start with 'claude-')",
			Err:      llmstream.ErrInvalidModel,
		}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	apiReq := &messagesRequest{
		Model:     req.Model,
		MaxTokens: req.Params.GetMaxTokens(defaultMaxTokens),
		Stream:    stream,
	}
	for _, m := range req.Messages {
		if m.Role == llmstream.RoleSystem {
			apiReq.System = m.Content
			continue
		}
		apiReq.Messages = append(apiReq.Messages, messageParam{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if params := req.Params; params != nil {
		apiReq.Temperature = params.Temperature
		apiReq.TopP = params.TopP
		apiReq.TopK = params.TopK
		apiReq.StopSequences = params.StopSequences
	}
	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolParam{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Parameters,
		})
	}
	return apiReq, nil
}

func (p *Provider) buildHTTPRequest(ctx context.Context, apiReq *messagesRequest) (*http.Request, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request encode failed: %w", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", p.cfg.Version)
	return httpReq, nil
}

// handleErrorResponse maps a non-200 response to a ProviderError.
func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := strings.TrimSpace(string(body))
	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return llmstream.NewProviderError(p.Name().String(), resp.StatusCode, message)
}

func convertResponse(message *messagesResponse) *llmstream.ChatResponse {
	out := &llmstream.ChatResponse{
		Model:        message.Model,
		FinishReason: mapStopReason(message.StopReason),
		Usage: &llmstream.Usage{
			PromptTokens:     message.Usage.InputTokens,
			CompletionTokens: message.Usage.OutputTokens,
			TotalTokens:      message.Usage.InputTokens + message.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}
	out.Text = text.String()
	return out
}
