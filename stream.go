package llmstream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/cascade-ai/cascade-llm-go/wire"
)

const (
	// streamBufferSize is the delivery channel capacity. A full channel
	// suspends the producer until the consumer drains it.
	streamBufferSize = 100

	// readChunkSize is the transport read granularity.
	readChunkSize = 4096
)

// FrameDecoder turns one frame payload into zero or more normalized events.
// Implementations live in the provider packages and hold per-stream state
// (tool call accumulation, pending usage); a decoder serves exactly one
// stream and is never shared.
type FrameDecoder interface {
	// Decode parses a single frame payload. A malformed payload is a soft
	// failure: return (nil, false) and the frame is skipped without
	// terminating the stream. Returned events may include a terminal
	// event (EventEnd or EventError), at which point the stream closes.
	Decode(payload string) ([]StreamEvent, bool)

	// Flush returns any trailing events (buffered tool calls, usage,
	// finish reason) when the wire terminates without the decoder having
	// emitted a terminal event itself: the [DONE] sentinel, an
	// "event: message_stop" line, or plain EOF. The pipeline appends
	// EventEnd afterwards; Flush must not emit terminal events.
	Flush() []StreamEvent
}

// Stream is the consumer-facing handle for one in-flight streaming request.
// It owns the producer task's cancellation and the receiving end of the
// delivery channel. Events arrive in exactly the order their source frames
// appeared on the wire; the last event is always EventEnd or EventError.
type Stream struct {
	events    chan StreamEvent
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Next blocks until the next event is available. ok is false once the stream
// is exhausted (the terminal event has already been delivered, or the stream
// was closed).
func (s *Stream) Next() (StreamEvent, bool) {
	ev, ok := <-s.events
	return ev, ok
}

// Events exposes the delivery channel directly for select-based consumers.
// The channel is closed after the terminal event.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Close abandons the stream. The producer task observes the cancellation
// within one scheduling step, stops reading from the network, and exits
// without error. Close is idempotent and safe to call after the stream is
// exhausted.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

// StreamOption adjusts pipeline limits.
type StreamOption func(*streamConfig)

type streamConfig struct {
	maxLineBytes int
}

// WithMaxLineBytes overrides the line-length bound that guards against a
// pathological stream that never emits a terminator.
func WithMaxLineBytes(n int) StreamOption {
	return func(c *streamConfig) { c.maxLineBytes = n }
}

// NewStream starts the stream task for one response body and returns its
// handle. The caller supplies the cancel func paired with ctx (the same
// context the HTTP request was built with) so that closing the handle also
// aborts the underlying connection. The task owns body and closes it on
// exit.
func NewStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, framing wire.Framing, dec FrameDecoder, opts ...StreamOption) *Stream {
	cfg := streamConfig{maxLineBytes: wire.DefaultMaxLineBytes}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Stream{
		events: make(chan StreamEvent, streamBufferSize),
		cancel: cancel,
	}
	go runPipeline(ctx, body, framing, dec, s.events, cfg)
	return s
}

// NewProducerStream starts a stream fed directly by produce, bypassing the
// byte-level pipeline. It serves sources that deliver pre-framed messages
// (gRPC server streaming, mock providers): produce calls emit for each
// event and returns when done; emit reports false once the consumer is gone
// or a terminal event has been sent. The pipeline guarantees the terminal
// invariant even if produce forgets to emit one.
func NewProducerStream(ctx context.Context, cancel context.CancelFunc, produce func(ctx context.Context, emit func(StreamEvent) bool)) *Stream {
	s := &Stream{
		events: make(chan StreamEvent, streamBufferSize),
		cancel: cancel,
	}

	go func() {
		defer close(s.events)

		done := false
		emit := func(ev StreamEvent) bool {
			if done {
				return false
			}
			if !send(ctx, s.events, ev) {
				done = true
				return false
			}
			if ev.Terminal() {
				done = true
				return false
			}
			return true
		}

		produce(ctx, emit)

		if !done {
			send(ctx, s.events, EndEvent())
		}
	}()

	return s
}

// runPipeline is the stream task: it drives transport reads through line
// buffering, framing, and decoding, and pushes normalized events onto out.
// It closes both out and body before returning, and sends exactly one
// terminal event unless the consumer cancelled first.
func runPipeline(ctx context.Context, body io.ReadCloser, framing wire.Framing, dec FrameDecoder, out chan<- StreamEvent, cfg streamConfig) {
	defer close(out)

	// A reader blocked in body.Read does not observe context cancellation
	// on its own; closing the body forces it to return.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-stop:
			body.Close()
		}
	}()

	buf := wire.NewLineBuffer(cfg.maxLineBytes)
	chunk := make([]byte, readChunkSize)

	for {
		n, readErr := body.Read(chunk)

		if n > 0 {
			lines, bufErr := buf.Append(chunk[:n])
			for _, line := range lines {
				frame := framing.Frame(line)
				switch frame.Kind {
				case wire.FrameIgnore:
					continue

				case wire.FrameTerminal:
					finish(ctx, dec, out)
					return

				case wire.FramePayload:
					events, ok := dec.Decode(frame.Payload)
					if !ok {
						// Malformed frame: skip, keep going.
						continue
					}
					for _, ev := range events {
						if !send(ctx, out, ev) {
							return
						}
						if ev.Terminal() {
							return
						}
					}
				}
			}
			if bufErr != nil {
				send(ctx, out, ErrorEvent(ErrorKindResourceExhausted, bufErr.Error()))
				return
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Stream ended without an explicit terminal frame.
				finish(ctx, dec, out)
				return
			}
			if ctx.Err() != nil {
				// Consumer cancelled; not an error.
				return
			}
			send(ctx, out, ErrorEvent(ErrorKindNetwork, readErr.Error()))
			return
		}
	}
}

// finish drains the decoder's trailing events and terminates the stream.
func finish(ctx context.Context, dec FrameDecoder, out chan<- StreamEvent) {
	for _, ev := range dec.Flush() {
		if ev.Terminal() {
			// Flush must not terminate; enforce the invariant anyway.
			send(ctx, out, ev)
			return
		}
		if !send(ctx, out, ev) {
			return
		}
	}
	send(ctx, out, EndEvent())
}

// send pushes one event, blocking while the channel is full (backpressure).
// It reports false when the consumer has cancelled the stream.
func send(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
