// Package lorem implements a mock provider that generates lorem ipsum
// text. It needs no network or credentials, which makes it useful for
// development and for exercising stream consumers. Because its events are
// born pre-framed, it feeds the delivery channel through NewProducerStream,
// bypassing the byte-level pipeline entirely.
package lorem

import (
	"context"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

const defaultMaxTokens = 256

// Provider is the mock lorem ipsum provider.
type Provider struct {
	generator *loremgen.Lorem
}

// New creates a lorem provider.
func New() *Provider {
	return &Provider{generator: loremgen.New()}
}

// Name returns the provider identifier.
func (p *Provider) Name() llmstream.ProviderID {
	return llmstream.ProviderLorem
}

// SupportsModel accepts models with the "lorem-" prefix, e.g. "lorem-fast",
// "lorem-slow".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Chat generates a complete lorem ipsum response.
func (p *Provider) Chat(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.ChatResponse, error) {
	if err := p.checkModel(req.Model); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxTokens := req.Params.GetMaxTokens(defaultMaxTokens)
	text := p.generateWords(maxTokens)

	return &llmstream.ChatResponse{
		Text:         text,
		Model:        req.Model,
		FinishReason: llmstream.FinishStop,
		Usage: &llmstream.Usage{
			PromptTokens:     estimateTokens(req.Messages),
			CompletionTokens: len(strings.Fields(text)),
			TotalTokens:      estimateTokens(req.Messages) + len(strings.Fields(text)),
		},
	}, nil
}

// ChatStream streams lorem ipsum one word at a time, at a rate selected by
// the model name, and finishes with usage, a stop reason, and the end
// event, like a real provider would.
func (p *Provider) ChatStream(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.Stream, error) {
	if err := p.checkModel(req.Model); err != nil {
		return nil, err
	}

	maxTokens := req.Params.GetMaxTokens(defaultMaxTokens)
	words := strings.Fields(p.generateWords(maxTokens))
	delay := streamDelay(req.Model)
	promptTokens := estimateTokens(req.Messages)

	ctx, cancel := context.WithCancel(ctx)

	return llmstream.NewProducerStream(ctx, cancel, func(ctx context.Context, emit func(llmstream.StreamEvent) bool) {
		sent := 0
		for _, word := range words {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			if !emit(llmstream.StreamEvent{
				Type: llmstream.EventContentDelta,
				Text: word + " ",
			}) {
				return
			}
			sent++
		}

		emit(llmstream.StreamEvent{
			Type: llmstream.EventUsage,
			Usage: &llmstream.Usage{
				PromptTokens:     promptTokens,
				CompletionTokens: sent,
				TotalTokens:      promptTokens + sent,
			},
		})
		emit(llmstream.StreamEvent{
			Type:         llmstream.EventFinish,
			FinishReason: llmstream.FinishStop,
		})
		emit(llmstream.EndEvent())
	}), nil
}

func (p *Provider) checkModel(model string) error {
	if p.SupportsModel(model) {
		return nil
	}
	return &llmstream.ModelError{
		Model:    model,
		Provider: p.Name().String(),
		Reason:   "model not supported by lorem provider (must start with 'lorem-')",
		Err:      llmstream.ErrInvalidModel,
	}
}

// streamDelay selects the per-word delay from the model name:
// lorem-slow 2 words/s, lorem-fast 200 words/s, default 20 words/s.
func streamDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 5 * time.Millisecond
	default:
		return 50 * time.Millisecond
	}
}

// generateWords produces roughly target words of lorem ipsum.
func (p *Provider) generateWords(target int) string {
	var sb strings.Builder
	count := 0
	for count < target {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		count += len(strings.Fields(sentence))
	}
	return strings.TrimSpace(sb.String())
}

// estimateTokens approximates prompt tokens by word count.
func estimateTokens(messages []llmstream.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Content))
	}
	return total
}
