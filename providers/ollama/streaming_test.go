package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	llmstream "github.com/cascade-ai/cascade-llm-go"
)

func testDecoder() *streamDecoder {
	return &streamDecoder{log: zerolog.Nop()}
}

func TestStreamDecoder_ContentDelta(t *testing.T) {
	d := testDecoder()

	events, ok := d.Decode(`{"model":"llama3","message":{"role":"assistant","content":"Hi"},"done":false}`)
	if !ok || len(events) != 1 {
		t.Fatalf("got %+v", events)
	}
	if events[0].Type != llmstream.EventContentDelta || events[0].Text != "Hi" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestStreamDecoder_GenerateEndpointShape(t *testing.T) {
	// /api/generate puts the fragment in "response" instead of "message".
	d := testDecoder()

	events, ok := d.Decode(`{"model":"llama3","response":"Hello","done":false}`)
	if !ok || len(events) != 1 || events[0].Text != "Hello" {
		t.Errorf("got %+v", events)
	}
}

func TestStreamDecoder_DoneWithCounters(t *testing.T) {
	d := testDecoder()

	events, ok := d.Decode(`{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":11,"eval_count":4}`)
	if !ok {
		t.Fatal("reported malformed")
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != llmstream.EventUsage {
		t.Errorf("event 0 = %+v, want usage", events[0])
	}
	if u := events[0].Usage; u.PromptTokens != 11 || u.CompletionTokens != 4 || u.TotalTokens != 15 {
		t.Errorf("usage = %+v", events[0].Usage)
	}
	if events[1].Type != llmstream.EventFinish || events[1].FinishReason != llmstream.FinishStop {
		t.Errorf("event 1 = %+v, want finish stop", events[1])
	}
	if events[2].Type != llmstream.EventEnd {
		t.Errorf("event 2 = %+v, want end", events[2])
	}
}

func TestStreamDecoder_BareDoneChunk(t *testing.T) {
	// done=true with no content, no counters, no reason: just the end.
	d := testDecoder()

	events, ok := d.Decode(`{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`)
	if !ok {
		t.Fatal("reported malformed")
	}
	if len(events) != 1 || events[0].Type != llmstream.EventEnd {
		t.Errorf("got %+v, want a single end event", events)
	}
}

func TestStreamDecoder_DoneChunkWithTrailingContent(t *testing.T) {
	d := testDecoder()

	events, ok := d.Decode(`{"model":"llama3","message":{"role":"assistant","content":"bye"},"done":true,"done_reason":"stop"}`)
	if !ok {
		t.Fatal("reported malformed")
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != llmstream.EventContentDelta || events[0].Text != "bye" {
		t.Errorf("event 0 = %+v, want trailing delta", events[0])
	}
}

func TestStreamDecoder_ErrorEnvelope(t *testing.T) {
	d := testDecoder()

	events, ok := d.Decode(`{"error":"model 'missing' not found"}`)
	if !ok || len(events) != 1 {
		t.Fatalf("got %+v", events)
	}
	if events[0].Type != llmstream.EventError || events[0].Err.Kind != llmstream.ErrorKindProvider {
		t.Errorf("event = %+v, want provider error", events[0])
	}
}

func TestStreamDecoder_MalformedChunkIsSoftFailure(t *testing.T) {
	d := testDecoder()

	if _, ok := d.Decode(`not json at all`); ok {
		t.Error("non-JSON line should be a soft failure")
	}

	events, ok := d.Decode(`{"message":{"content":"recovered"},"done":false}`)
	if !ok || len(events) != 1 || events[0].Text != "recovered" {
		t.Errorf("decoder should recover, got %+v", events)
	}
}

func TestMapDoneReason(t *testing.T) {
	tests := []struct {
		raw  string
		want llmstream.FinishReason
	}{
		{"stop", llmstream.FinishStop},
		{"length", llmstream.FinishLength},
		{"load", llmstream.FinishUnrecognized},
	}

	for _, tt := range tests {
		if got := mapDoneReason(tt.raw); got != tt.want {
			t.Errorf("mapDoneReason(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestChatStream_EndToEnd(t *testing.T) {
	lines := []string{
		`{"model":"llama3","message":{"role":"assistant","content":"One"},"done":false}`,
		`{"model":"llama3","message":{"role":"assistant","content":" two"},"done":false}`,
		`{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":6,"eval_count":2}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n", l)
			flusher.Flush()
		}
	}))
	defer server.Close()

	p := New(&Config{BaseURL: server.URL})
	stream, err := p.ChatStream(context.Background(), &llmstream.ChatRequest{
		Model:    "llama3",
		Messages: []llmstream.Message{llmstream.UserMessage("count")},
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	defer stream.Close()

	var text string
	var usage *llmstream.Usage
	var last llmstream.StreamEvent
	for ev := range stream.Events() {
		last = ev
		switch ev.Type {
		case llmstream.EventContentDelta:
			text += ev.Text
		case llmstream.EventUsage:
			usage = ev.Usage
		}
	}

	if text != "One two" {
		t.Errorf("text = %q", text)
	}
	if usage == nil || usage.TotalTokens != 8 {
		t.Errorf("usage = %+v, want total 8", usage)
	}
	if last.Type != llmstream.EventEnd {
		t.Errorf("last event = %+v, want end", last)
	}
}

func TestChatStream_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'missing' not found"}`)
	}))
	defer server.Close()

	p := New(&Config{BaseURL: server.URL})
	_, err := p.ChatStream(context.Background(), &llmstream.ChatRequest{
		Model:    "missing",
		Messages: []llmstream.Message{llmstream.UserMessage("hi")},
	})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !llmstream.IsInvalidRequest(err) {
		t.Errorf("expected invalid request error, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	}))
	defer server.Close()

	p := New(&Config{BaseURL: server.URL, EmbeddingModel: "nomic-embed-text"})
	embeddings, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("got %d embeddings, want 2", len(embeddings))
	}
	if embeddings[1].Index != 1 || len(embeddings[1].Vector) != 3 {
		t.Errorf("embedding = %+v", embeddings[1])
	}
}

func TestSupportsModel(t *testing.T) {
	p := New(&Config{BaseURL: "http://localhost:11434"})
	if !p.SupportsModel("anything-goes") {
		t.Error("any non-empty model name should be accepted")
	}
	if p.SupportsModel("") {
		t.Error("empty model name should be rejected")
	}
}
