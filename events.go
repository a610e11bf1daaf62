package llmstream

import "fmt"

// EventType discriminates StreamEvent variants.
type EventType string

const (
	// EventContentDelta carries an incremental text fragment in Text.
	EventContentDelta EventType = "content_delta"

	// EventToolCallDelta carries a partial tool call fragment in ToolCall.
	EventToolCallDelta EventType = "tool_call_delta"

	// EventUsage carries final token counts in Usage. At most one per
	// stream, immediately before the finish reason or stream end.
	EventUsage EventType = "usage"

	// EventFinish carries the reason generation stopped in FinishReason.
	EventFinish EventType = "finish"

	// EventError is terminal; Err describes what went wrong. Nothing is
	// emitted after it.
	EventError EventType = "error"

	// EventEnd is the terminal event of a successful stream. Nothing is
	// emitted after it.
	EventEnd EventType = "end"
)

// StreamEvent is the provider-agnostic output of the streaming pipeline.
// Exactly one of the payload fields is set, selected by Type.
//
// Consumers loop until Terminal() reports true:
//
//	for ev, ok := stream.Next(); ok; ev, ok = stream.Next() {
//		switch ev.Type {
//		case llmstream.EventContentDelta:
//			fmt.Print(ev.Text)
//		case llmstream.EventError:
//			return ev.Err
//		}
//		if ev.Terminal() {
//			break
//		}
//	}
type StreamEvent struct {
	Type EventType

	// Text is the fragment for EventContentDelta.
	Text string

	// ToolCall is the fragment for EventToolCallDelta.
	ToolCall *ToolCallDelta

	// Usage is set for EventUsage.
	Usage *Usage

	// FinishReason is set for EventFinish.
	FinishReason FinishReason

	// Err is set for EventError.
	Err *StreamError
}

// Terminal reports whether this event ends the stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// ToolCallDelta is one fragment of an incrementally streamed tool call.
// The first fragment for an Index carries ID and Name; subsequent fragments
// append to the arguments JSON.
type ToolCallDelta struct {
	// Index identifies the tool call within the response (0-indexed).
	Index int

	// ID is the provider-assigned call identifier.
	ID string

	// Name is the function name. Set on the first fragment only.
	Name string

	// ArgumentsDelta is an incremental piece of the arguments JSON.
	ArgumentsDelta string
}

// Usage holds token accounting for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// FinishReason is the normalized reason generation stopped.
type FinishReason string

const (
	// FinishStop: the model reached a natural stopping point.
	FinishStop FinishReason = "stop"

	// FinishLength: the maximum token limit was reached.
	FinishLength FinishReason = "length"

	// FinishStopSequence: a configured stop sequence was generated.
	FinishStopSequence FinishReason = "stop_sequence"

	// FinishToolCalls: the model requested one or more tool calls.
	FinishToolCalls FinishReason = "tool_calls"

	// FinishContentFilter: content was filtered by the provider.
	FinishContentFilter FinishReason = "content_filter"

	// FinishUnrecognized: the provider reported a reason this library does
	// not know. The stream still completes normally.
	FinishUnrecognized FinishReason = "unrecognized"
)

// ErrorKind classifies terminal stream errors.
type ErrorKind string

const (
	// ErrorKindNetwork: the transport failed mid-stream (connection drop,
	// read timeout).
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindProvider: the service sent an explicit error event.
	ErrorKindProvider ErrorKind = "provider"

	// ErrorKindResourceExhausted: a wire line grew past the configured
	// maximum without a terminator.
	ErrorKindResourceExhausted ErrorKind = "resource_exhausted"
)

// StreamError is a terminal mid-stream failure. It is delivered as the last
// event on the stream, never returned from ChatStream itself.
type StreamError struct {
	Kind    ErrorKind
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("llmstream: %s error: %s", e.Kind, e.Message)
}

// ErrorEvent builds a terminal error event. Provider decoders use it to
// surface explicit error payloads.
func ErrorEvent(kind ErrorKind, message string) StreamEvent {
	return StreamEvent{
		Type: EventError,
		Err:  &StreamError{Kind: kind, Message: message},
	}
}

// EndEvent builds the terminal event of a successful stream.
func EndEvent() StreamEvent {
	return StreamEvent{Type: EventEnd}
}
