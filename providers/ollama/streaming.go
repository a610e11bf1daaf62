package ollama

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
	"github.com/cascade-ai/cascade-llm-go/wire"
)

// ChatStream starts a streaming request. The stream terminates on the
// chunk with "done": true, which also carries the token counters when the
// server reports them.
func (p *Provider) ChatStream(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.Stream, error) {
	apiReq, err := p.buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	resp, err := p.post(ctx, "/api/chat", apiReq)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		return nil, p.handleErrorResponse(resp)
	}

	dec := &streamDecoder{log: p.log}
	return llmstream.NewStream(ctx, cancel, resp.Body, wire.NDJSON{}, dec,
		llmstream.WithMaxLineBytes(p.cfg.MaxLineBytes)), nil
}

// streamDecoder decodes NDJSON chunks into normalized events. Terminal
// detection lives here rather than in the framing: the "done" flag is
// embedded in an ordinary payload.
type streamDecoder struct {
	log zerolog.Logger
}

func (d *streamDecoder) Decode(payload string) ([]llmstream.StreamEvent, bool) {
	// Mid-stream failures arrive as an error envelope on its own line.
	var envelope apiError
	if json.Unmarshal([]byte(payload), &envelope) == nil && envelope.Error != "" {
		return []llmstream.StreamEvent{
			llmstream.ErrorEvent(llmstream.ErrorKindProvider, envelope.Error),
		}, true
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		d.log.Warn().
			Err(err).
			Str("data", truncate(payload, 200)).
			Msg("skipping malformed stream chunk")
		return nil, false
	}

	var events []llmstream.StreamEvent
	if content := chunk.content(); content != "" {
		events = append(events, llmstream.StreamEvent{
			Type: llmstream.EventContentDelta,
			Text: content,
		})
	}

	if chunk.Done {
		if chunk.PromptEvalCount > 0 || chunk.EvalCount > 0 {
			events = append(events, llmstream.StreamEvent{
				Type: llmstream.EventUsage,
				Usage: &llmstream.Usage{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
					TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
				},
			})
		}
		if chunk.DoneReason != "" {
			events = append(events, llmstream.StreamEvent{
				Type:         llmstream.EventFinish,
				FinishReason: mapDoneReason(chunk.DoneReason),
			})
		}
		events = append(events, llmstream.EndEvent())
	}
	return events, true
}

// Flush has nothing buffered: every chunk is self-contained.
func (d *streamDecoder) Flush() []llmstream.StreamEvent {
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
