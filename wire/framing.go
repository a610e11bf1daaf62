package wire

import "strings"

// FrameKind classifies a line after framing.
type FrameKind int

const (
	// FrameIgnore marks lines that carry nothing: blank lines, SSE
	// comments, unrecognized field prefixes.
	FrameIgnore FrameKind = iota

	// FramePayload marks a line whose Payload should be handed to the
	// provider decoder.
	FramePayload

	// FrameTerminal marks an end-of-stream signal carried by the framing
	// itself (the [DONE] sentinel, an "event: message_stop" line). No
	// payload follows.
	FrameTerminal
)

// Frame is one logical unit extracted from the byte stream.
type Frame struct {
	Kind    FrameKind
	Payload string
}

// Framing splits complete lines into frames. Implementations are stateless;
// one value can be shared across streams.
type Framing interface {
	Frame(line string) Frame
}

// NDJSON frames newline-delimited JSON: every non-blank line is a payload.
// Terminal detection (a "done" flag inside the object) is the decoder's job.
type NDJSON struct{}

func (NDJSON) Frame(line string) Frame {
	if strings.TrimSpace(line) == "" {
		return Frame{Kind: FrameIgnore}
	}
	return Frame{Kind: FramePayload, Payload: line}
}

// doneSentinel terminates a plain SSE stream.
const doneSentinel = "[DONE]"

// SSE frames plain server-sent events as emitted by Chat Completions style
// APIs: only "data: " lines matter, and the literal [DONE] payload ends the
// stream. Multi-line data continuation, retry: and id: fields are not
// handled; none of the supported services emit them.
type SSE struct{}

func (SSE) Frame(line string) Frame {
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return Frame{Kind: FrameIgnore}
	}
	if payload == doneSentinel {
		return Frame{Kind: FrameTerminal}
	}
	return Frame{Kind: FramePayload, Payload: payload}
}

// TypedSSE frames typed server-sent events as emitted by the Anthropic
// Messages API: "data: " lines carry a JSON object with a "type"
// discriminant, and an "event: message_stop" line may end the stream on its
// own, even without a matching data line.
type TypedSSE struct{}

func (TypedSSE) Frame(line string) Frame {
	if payload, ok := strings.CutPrefix(line, "data: "); ok {
		return Frame{Kind: FramePayload, Payload: payload}
	}
	if name, ok := strings.CutPrefix(line, "event: "); ok {
		if strings.TrimSpace(name) == "message_stop" {
			return Frame{Kind: FrameTerminal}
		}
	}
	return Frame{Kind: FrameIgnore}
}
