package llmstream

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cascade-ai/cascade-llm-go/wire"
)

// chunkedReader replays a byte stream in caller-chosen chunk sizes, then EOF.
type chunkedReader struct {
	chunks [][]byte
	closed atomic.Bool
}

func newChunkedReader(data string, sizes ...int) *chunkedReader {
	r := &chunkedReader{}
	rest := []byte(data)
	for _, n := range sizes {
		if n > len(rest) {
			n = len(rest)
		}
		r.chunks = append(r.chunks, rest[:n])
		rest = rest[n:]
	}
	if len(rest) > 0 {
		r.chunks = append(r.chunks, rest)
	}
	return r
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n == len(r.chunks[0]) {
		r.chunks = r.chunks[1:]
	} else {
		r.chunks[0] = r.chunks[0][n:]
	}
	return n, nil
}

func (r *chunkedReader) Close() error {
	r.closed.Store(true)
	return nil
}

// echoDecoder turns each payload into one content delta. Payloads containing
// "bad" are soft failures; "stop" ends the stream.
type echoDecoder struct{}

func (echoDecoder) Decode(payload string) ([]StreamEvent, bool) {
	if strings.Contains(payload, "bad") {
		return nil, false
	}
	if payload == "stop" {
		return []StreamEvent{EndEvent()}, true
	}
	return []StreamEvent{{Type: EventContentDelta, Text: payload}}, true
}

func (echoDecoder) Flush() []StreamEvent { return nil }

func collect(t *testing.T, s *Stream) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatal("stream did not finish in time")
		}
	}
}

func startStream(body io.ReadCloser, framing wire.Framing, dec FrameDecoder, opts ...StreamOption) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return NewStream(ctx, cancel, body, framing, dec, opts...)
}

func TestStream_ChunkBoundaryInvariance(t *testing.T) {
	const data = "alpha\nbeta\ngamma\ndelta\n"

	splits := [][]int{
		{len(data)},       // one chunk
		{1, 1, 1, 1, 1},   // byte at a time for the head, rest in one go
		{3, 7, 2},         // arbitrary
		{len("alpha"), 1}, // split exactly at the terminator
	}

	for i, sizes := range splits {
		t.Run(fmt.Sprintf("split_%d", i), func(t *testing.T) {
			s := startStream(newChunkedReader(data, sizes...), wire.NDJSON{}, echoDecoder{})
			events := collect(t, s)

			want := []string{"alpha", "beta", "gamma", "delta"}
			if len(events) != len(want)+1 {
				t.Fatalf("got %d events, want %d", len(events), len(want)+1)
			}
			for j, text := range want {
				if events[j].Type != EventContentDelta || events[j].Text != text {
					t.Errorf("event %d = %+v, want content delta %q", j, events[j], text)
				}
			}
			if events[len(events)-1].Type != EventEnd {
				t.Errorf("last event = %+v, want end", events[len(events)-1])
			}
		})
	}
}

func TestStream_SoftFailureSkipsFrame(t *testing.T) {
	s := startStream(newChunkedReader("one\nbad frame\ntwo\n"), wire.NDJSON{}, echoDecoder{})
	events := collect(t, s)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Text != "one" || events[1].Text != "two" {
		t.Errorf("deltas = %q, %q; malformed frame should be skipped silently", events[0].Text, events[1].Text)
	}
	if events[2].Type != EventEnd {
		t.Errorf("last event = %+v, want end", events[2])
	}
}

func TestStream_DecoderTerminalStopsPipeline(t *testing.T) {
	s := startStream(newChunkedReader("one\nstop\nnever\n"), wire.NDJSON{}, echoDecoder{})
	events := collect(t, s)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "one" || events[1].Type != EventEnd {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestStream_ExactlyOneTerminalEvent(t *testing.T) {
	inputs := []struct {
		name string
		data string
	}{
		{"eof without sentinel", "a\nb\n"},
		{"decoder terminal", "a\nstop\n"},
		{"empty body", ""},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			s := startStream(newChunkedReader(tt.data), wire.NDJSON{}, echoDecoder{})
			events := collect(t, s)

			terminals := 0
			for i, ev := range events {
				if ev.Terminal() {
					terminals++
					if i != len(events)-1 {
						t.Errorf("terminal event at index %d, not last", i)
					}
				}
			}
			if terminals != 1 {
				t.Errorf("got %d terminal events, want exactly 1: %+v", terminals, events)
			}
		})
	}
}

func TestStream_SentinelTerminalViaFraming(t *testing.T) {
	data := "data: hello\ndata: [DONE]\ndata: after\n"
	s := startStream(newChunkedReader(data), wire.SSE{}, echoDecoder{})
	events := collect(t, s)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "hello" || events[1].Type != EventEnd {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestStream_LineOverflowIsTerminalError(t *testing.T) {
	s := startStream(newChunkedReader("ok\n"+strings.Repeat("x", 64)), wire.NDJSON{}, echoDecoder{}, WithMaxLineBytes(16))
	events := collect(t, s)

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("last event = %+v, want error", last)
	}
	if last.Err == nil || last.Err.Kind != ErrorKindResourceExhausted {
		t.Errorf("error = %+v, want resource_exhausted", last.Err)
	}
}

func TestStream_ReadErrorIsNetworkError(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		w.Write([]byte("first\n"))
		w.CloseWithError(fmt.Errorf("connection reset"))
	}()

	s := startStream(r, wire.NDJSON{}, echoDecoder{})
	events := collect(t, s)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Text != "first" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != EventError || events[1].Err.Kind != ErrorKindNetwork {
		t.Errorf("last event = %+v, want network error", events[1])
	}
}

func TestStream_CloseUnblocksPendingRead(t *testing.T) {
	// The producer is blocked in Read with no data coming. Close must make
	// the pipeline exit and close the channel without an error event.
	r, w := io.Pipe()
	defer w.Close()

	go w.Write([]byte("partial"))

	s := startStream(r, wire.NDJSON{}, echoDecoder{})

	time.Sleep(20 * time.Millisecond)
	s.Close()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return
			}
			if ev.Type == EventError {
				t.Fatalf("cancellation produced an error event: %+v", ev)
			}
		case <-deadline:
			t.Fatal("pipeline did not exit after Close")
		}
	}
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	s := startStream(newChunkedReader("a\n"), wire.NDJSON{}, echoDecoder{})
	collect(t, s)
	s.Close()
	s.Close()
}

func TestStream_BodyClosedOnExit(t *testing.T) {
	r := newChunkedReader("a\n")
	s := startStream(r, wire.NDJSON{}, echoDecoder{})
	collect(t, s)

	// The watcher goroutine closes the body once the pipeline returns.
	waitFor(t, func() bool { return r.closed.Load() })
}

func TestStream_NextDrainsToExhaustion(t *testing.T) {
	s := startStream(newChunkedReader("a\nb\n"), wire.NDJSON{}, echoDecoder{})

	var texts []string
	for {
		ev, ok := s.Next()
		if !ok {
			break
		}
		if ev.Type == EventContentDelta {
			texts = append(texts, ev.Text)
		}
	}
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Errorf("got %v, want [a b]", texts)
	}

	if _, ok := s.Next(); ok {
		t.Error("Next after exhaustion should report ok=false")
	}
}

func TestProducerStream_AppendsTerminalWhenMissing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewProducerStream(ctx, cancel, func(ctx context.Context, emit func(StreamEvent) bool) {
		emit(StreamEvent{Type: EventContentDelta, Text: "hi"})
		// No terminal event on purpose.
	})

	events := collect(t, s)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[1].Type != EventEnd {
		t.Errorf("last event = %+v, want end", events[1])
	}
}

func TestProducerStream_EmitRefusesAfterTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewProducerStream(ctx, cancel, func(ctx context.Context, emit func(StreamEvent) bool) {
		if !emit(EndEvent()) {
			// Terminal emit reports false so producers stop.
		}
		if emit(StreamEvent{Type: EventContentDelta, Text: "late"}) {
			panic("emit accepted an event after the terminal")
		}
	})

	events := collect(t, s)
	if len(events) != 1 || events[0].Type != EventEnd {
		t.Errorf("got %+v, want a single end event", events)
	}
}

func TestProducerStream_CancelStopsProducer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	s := NewProducerStream(ctx, cancel, func(ctx context.Context, emit func(StreamEvent) bool) {
		defer close(stopped)
		for i := 0; ; i++ {
			if !emit(StreamEvent{Type: EventContentDelta, Text: fmt.Sprint(i)}) {
				return
			}
		}
	})

	// Let a few events through, then abandon the stream. The producer fills
	// the buffer, blocks in emit, and must observe the cancellation.
	<-s.Events()
	s.Close()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not stop after Close")
	}
}

func TestStream_OrderPreserved(t *testing.T) {
	var sb strings.Builder
	var want []string
	for i := 0; i < 500; i++ {
		text := fmt.Sprintf("chunk-%03d", i)
		sb.WriteString(text + "\n")
		want = append(want, text)
	}

	s := startStream(newChunkedReader(sb.String(), 13, 100, 7, 256), wire.NDJSON{}, echoDecoder{})

	i := 0
	for ev := range s.Events() {
		if ev.Type != EventContentDelta {
			continue
		}
		if ev.Text != want[i] {
			t.Fatalf("event %d = %q, want %q", i, ev.Text, want[i])
		}
		i++
	}
	if i != len(want) {
		t.Errorf("got %d deltas, want %d", i, len(want))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
