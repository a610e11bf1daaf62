package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
	"github.com/cascade-ai/cascade-llm-go/wire"
)

// ChatStream starts a streaming request. The stream terminates on a
// message_stop event (either as a data payload or as a bare "event:" line),
// an explicit error event, or a transport failure.
func (p *Provider) ChatStream(ctx context.Context, req *llmstream.ChatRequest) (*llmstream.Stream, error) {
	apiReq, err := p.buildRequest(req, true)
	if err != nil {
		return nil, err
	}

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
		return nil, fmt.Errorf("anthropic HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		defer cancel()
		return nil, p.handleErrorResponse(resp)
	}

	dec := &streamDecoder{log: p.log}
	return llmstream.NewStream(ctx, cancel, resp.Body, wire.TypedSSE{}, dec,
		llmstream.WithMaxLineBytes(p.cfg.MaxLineBytes)), nil
}

// streamDecoder decodes typed SSE events into normalized events. One
// decoder serves one stream. Usage accumulates across message_start (input
// tokens) and message_delta (output tokens); tool_use blocks announced by
// content_block_start feed the input_json_delta fragments that follow.
type streamDecoder struct {
	log zerolog.Logger

	tools     map[int]toolBlock
	toolIndex map[int]int // content block index -> tool call ordinal

	inTokens  int
	outTokens int
	sawUsage  bool

	finish    llmstream.FinishReason
	sawFinish bool
}

type toolBlock struct {
	id   string
	name string
}

func (d *streamDecoder) Decode(payload string) ([]llmstream.StreamEvent, bool) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		d.log.Warn().
			Err(err).
			Str("data", truncate(payload, 200)).
			Msg("skipping malformed stream event")
		return nil, false
	}

	switch ev.Type {
	case "ping":
		// Heartbeat; nothing to emit.
		return nil, true

	case "message_start":
		if ev.Message != nil && ev.Message.Usage != nil {
			d.inTokens = ev.Message.Usage.InputTokens
			d.sawUsage = true
		}
		return nil, true

	case "content_block_start":
		if ev.ContentBlock == nil || ev.ContentBlock.Type != "tool_use" {
			return nil, true
		}
		if d.tools == nil {
			d.tools = make(map[int]toolBlock)
			d.toolIndex = make(map[int]int)
		}
		ordinal := len(d.tools)
		d.tools[ev.Index] = toolBlock{id: ev.ContentBlock.ID, name: ev.ContentBlock.Name}
		d.toolIndex[ev.Index] = ordinal
		return []llmstream.StreamEvent{{
			Type: llmstream.EventToolCallDelta,
			ToolCall: &llmstream.ToolCallDelta{
				Index: ordinal,
				ID:    ev.ContentBlock.ID,
				Name:  ev.ContentBlock.Name,
			},
		}}, true

	case "content_block_delta":
		if ev.Delta == nil {
			return nil, true
		}
		switch ev.Delta.Type {
		case "text_delta":
			if ev.Delta.Text == "" {
				// Empty deltas are suppressed.
				return nil, true
			}
			return []llmstream.StreamEvent{{
				Type: llmstream.EventContentDelta,
				Text: ev.Delta.Text,
			}}, true
		case "input_json_delta":
			tool, ok := d.tools[ev.Index]
			if !ok {
				return nil, true
			}
			return []llmstream.StreamEvent{{
				Type: llmstream.EventToolCallDelta,
				ToolCall: &llmstream.ToolCallDelta{
					Index:          d.toolIndex[ev.Index],
					ID:             tool.id,
					ArgumentsDelta: ev.Delta.PartialJSON,
				},
			}}, true
		}
		return nil, true

	case "content_block_stop":
		return nil, true

	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			d.finish = mapStopReason(ev.Delta.StopReason)
			d.sawFinish = true
		}
		if ev.Usage != nil {
			d.outTokens = ev.Usage.OutputTokens
			d.sawUsage = true
		}
		return nil, true

	case "message_stop":
		// Terminal via the data path; the bare "event: message_stop" line
		// reaches Flush through the framing instead.
		return append(d.trailing(), llmstream.EndEvent()), true

	case "error":
		message := "unknown provider error"
		if ev.Error != nil {
			message = ev.Error.Message
		}
		return []llmstream.StreamEvent{
			llmstream.ErrorEvent(llmstream.ErrorKindProvider, message),
		}, true
	}

	// Well-formed but unrecognized event type: ignorable.
	return nil, true
}

// Flush emits accumulated usage and finish reason when the stream ends via
// the event line or EOF.
func (d *streamDecoder) Flush() []llmstream.StreamEvent {
	return d.trailing()
}

func (d *streamDecoder) trailing() []llmstream.StreamEvent {
	var events []llmstream.StreamEvent
	if d.sawUsage {
		events = append(events, llmstream.StreamEvent{
			Type: llmstream.EventUsage,
			Usage: &llmstream.Usage{
				PromptTokens:     d.inTokens,
				CompletionTokens: d.outTokens,
				TotalTokens:      d.inTokens + d.outTokens,
			},
		})
		d.sawUsage = false
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
