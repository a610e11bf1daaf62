// Package openai implements the OpenAI Chat Completions provider. Streaming
// responses use the plain SSE framing: "data: {json}" lines terminated by
// the literal [DONE] sentinel.
package openai

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

// Provider is the OpenAI adapter.
type Provider struct {
	cfg        *Config
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an OpenAI provider from the given configuration.
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
	return llmstream.ProviderOpenAI
}

// SupportsModel reports whether the model looks like an OpenAI model: either
// present in the model catalog or carrying a known prefix.
func (p *Provider) SupportsModel(model string) bool {
	if _, ok := llmstream.GetCatalogRegistry().Lookup(llmstream.ProviderOpenAI, model); ok {
		return true
	}
	return strings.HasPrefix(model, "gpt-") ||
		strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4")
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
		return nil, fmt.Errorf("openai HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("openai response decode failed: %w", err)
	}
	return convertResponse(&completion), nil
}

// buildRequest translates the library request into the Chat Completions
// wire format.
func (p *Provider) buildRequest(req *llmstream.ChatRequest, stream bool) (*chatCompletionRequest, error) {
	if !p.SupportsModel(req.Model) {
		return nil, &llmstream.ModelError{
			Model:    req.Model,
			Provider: p.Name().String(),
			Reason:   "model not recognized as an OpenAI model",
			Err:      llmstream.ErrInvalidModel,
		}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	apiReq := &chatCompletionRequest{
		Model:  req.Model,
		Stream: stream,
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if params := req.Params; params != nil {
		apiReq.Temperature = params.Temperature
		apiReq.TopP = params.TopP
		apiReq.MaxTokens = params.MaxTokens
		apiReq.Stop = params.StopSequences
	}
	for _, tool := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, toolDefinition{
			Type: "function",
			Function: toolDefinitionEntry{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	if stream {
		apiReq.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return apiReq, nil
}

func (p *Provider) buildHTTPRequest(ctx context.Context, apiReq *chatCompletionRequest) (*http.Request, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai request encode failed: %w", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
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

func convertResponse(completion *chatCompletionResponse) *llmstream.ChatResponse {
	out := &llmstream.ChatResponse{Model: completion.Model}

	if len(completion.Choices) > 0 {
		choice := completion.Choices[0]
		out.Text = choice.Message.Content
		for _, tc := range choice.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, llmstream.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		if choice.FinishReason != nil {
			out.FinishReason = mapFinishReason(*choice.FinishReason)
		}
	}
	if completion.Usage != nil {
		out.Usage = completion.Usage.normalized()
	}
	return out
}
