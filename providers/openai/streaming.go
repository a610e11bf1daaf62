package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
	"github.com/cascade-ai/cascade-llm-go/wire"
)

// ChatStream starts a streaming request. Events arrive on the returned
// stream in wire order; the terminal event is EventEnd after the [DONE]
// sentinel, or EventError on transport or provider failure.
func (p *Provider) ChatStream(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.Stream, error) {
	apiReq, err := p.buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	// The cancel func is handed to the stream so closing the handle also
	// aborts the connection.
	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := p.buildHTTPRequest(ctx, apiReq)
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("openai HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		return nil, p.handleErrorResponse(resp)
	}

	dec := &streamDecoder{log: p.log}
	return llmstream.NewStream(ctx, cancel, resp.Body, wire.SSE{}, dec,
		llmstream.WithMaxLineBytes(p.cfg.MaxLineBytes)), nil
}

// streamDecoder decodes Chat Completions chunks into normalized events.
// One decoder serves one stream; it tracks which tool call indices have been
// announced and holds usage/finish data back until the wire terminates,
// because with stream_options.include_usage the usage-only chunk arrives
// after the finish_reason chunk.
type streamDecoder struct {
	log zerolog.Logger

	announced    map[int]bool
	pendingUsage *llmstream.Usage
	finish       llmstream.FinishReason
	sawFinish    bool
}

func (d *streamDecoder) Decode(payload string) ([]llmstream.StreamEvent, bool) {
	// Some gateways put an error envelope on the stream instead of a
	// chunk. That is a terminal provider error, not a malformed frame.
	var envelope apiError
	if json.Unmarshal([]byte(payload), &envelope) == nil && envelope.Error.Message != "" {
		return []llmstream.StreamEvent{
			llmstream.ErrorEvent(llmstream.ErrorKindProvider, envelope.Error.Message),
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

	// Usage-only final chunk has no choices.
	if chunk.Usage != nil {
		d.pendingUsage = chunk.Usage.normalized()
	}
	if len(chunk.Choices) == 0 {
		return nil, true
	}

	choice := chunk.Choices[0]
	var events []llmstream.StreamEvent

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		events = append(events, llmstream.StreamEvent{
			Type: llmstream.EventContentDelta,
			Text: *choice.Delta.Content,
		})
	}

	for _, tc := range choice.Delta.ToolCalls {
		if d.announced == nil {
			d.announced = make(map[int]bool)
		}
		delta := &llmstream.ToolCallDelta{
			Index:          tc.Index,
			ID:             tc.ID,
			ArgumentsDelta: tc.Function.Arguments,
		}
		if !d.announced[tc.Index] {
			// First fragment for this index carries the function name.
			delta.Name = tc.Function.Name
			d.announced[tc.Index] = true
		}
		events = append(events, llmstream.StreamEvent{
			Type:     llmstream.EventToolCallDelta,
			ToolCall: delta,
		})
	}

	if choice.FinishReason != nil {
		d.finish = mapFinishReason(*choice.FinishReason)
		d.sawFinish = true
	}
	return events, true
}

// Flush emits the held-back usage and finish reason once the [DONE] sentinel
// (or EOF) arrives.
func (d *streamDecoder) Flush() []llmstream.StreamEvent {
	var events []llmstream.StreamEvent
	if d.pendingUsage != nil {
		events = append(events, llmstream.StreamEvent{
			Type:  llmstream.EventUsage,
			Usage: d.pendingUsage,
		})
		d.pendingUsage = nil
	}
	if d.sawFinish {
		events = append(events, llmstream.StreamEvent{
			Type:         llmstream.EventFinish,
			FinishReason: d.finish,
		})
		d.sawFinish = false
	}
	return events
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
