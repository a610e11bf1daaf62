// Package ollama implements the Ollama provider for locally hosted models.
// Streaming responses use NDJSON framing: one complete JSON object per
// line, with a "done": true field marking the final chunk.
package ollama

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

// Provider is the Ollama adapter.
type Provider struct {
	cfg        *Config
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates an Ollama provider from the given configuration.
func New(cfg *Config) *Provider {
	return &Provider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        cfg.logger(),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() llmstream.ProviderID {
	return llmstream.ProviderOllama
}

// SupportsModel accepts any non-empty model name; the local server decides
// what it can actually serve.
func (p *Provider) SupportsModel(model string) bool {
	return model != ""
}

// Chat generates a complete response (blocking).
func (p *Provider) Chat(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.ChatResponse, error) {
	apiReq, err := p.buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, "/api/chat", apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("ollama response decode failed: %w", err)
	}

	out := &llmstream.ChatResponse{
		Text:         reply.Message.Content,
		Model:        reply.Model,
		FinishReason: mapDoneReason(reply.DoneReason),
	}
	if reply.PromptEvalCount > 0 || reply.EvalCount > 0 {
		out.Usage = &llmstream.Usage{
			PromptTokens:     reply.PromptEvalCount,
			CompletionTokens: reply.EvalCount,
			TotalTokens:      reply.PromptEvalCount + reply.EvalCount,
		}
	}
	return out, nil
}

// Embed returns one embedding per input text. The embeddings endpoint
// processes a single prompt per call, so texts are submitted sequentially.
func (p *Provider) Embed(ctx context.Context, texts []string) ([]llmstream.Embedding, error) {
	embeddings := make([]llmstream.Embedding, 0, len(texts))
	for i, text := range texts {
		resp, err := p.post(ctx, "/api/embeddings", &embeddingsRequest{
			Model:  p.cfg.EmbeddingModel,
			Prompt: text,
		})
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := p.handleErrorResponse(resp)
			resp.Body.Close()
			return nil, err
		}

		var reply embeddingsResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&reply)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("ollama embeddings decode failed: %w", decodeErr)
		}

		embeddings = append(embeddings, llmstream.Embedding{
			Vector: reply.Embedding,
			Index:  i,
		})
	}
	return embeddings, nil
}

// buildRequest translates the library request into the Ollama wire format.
// Sampling parameters map into the options object (num_predict is the
// Ollama name for max tokens).
func (p *Provider) buildRequest(req *llmstream.ChatRequest, stream bool) (*chatRequest, error) {
	if !p.SupportsModel(req.Model) {
		return nil, &llmstream.ModelError{
			Model:    req.Model,
			Provider: p.Name().String(),
			Reason:   "model name must not be empty",
			Err:      llmstream.ErrInvalidModel,
		}
	}
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}

	apiReq := &chatRequest{
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
		options := make(map[string]any)
		if params.Temperature != nil {
			options["temperature"] = *params.Temperature
		}
		if params.TopP != nil {
			options["top_p"] = *params.TopP
		}
		if params.TopK != nil {
			options["top_k"] = *params.TopK
		}
		if params.MaxTokens != nil {
			options["num_predict"] = *params.MaxTokens
		}
		if len(params.StopSequences) > 0 {
			options["stop"] = params.StopSequences
		}
		if len(options) > 0 {
			apiReq.Options = options
		}
	}
	return apiReq, nil
}

func (p *Provider) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama request encode failed: %w", err)
	}

	url := strings.TrimSuffix(p.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama HTTP request failed: %w", err)
	}
	return resp, nil
}

// handleErrorResponse maps a non-200 response to a ProviderError.
func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := strings.TrimSpace(string(body))
	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		message = envelope.Error
	}
	return llmstream.NewProviderError(p.Name().String(), resp.StatusCode, message)
}
