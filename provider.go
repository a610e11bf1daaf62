package llmstream

import (
	"context"
)

// Provider is the interface every remote text-generation service adapter
// implements. The same abstraction covers hand-rolled HTTP providers and
// pre-framed sources (mocks, gRPC server streams).
//
// Types used by this interface:
//   - ChatRequest, Message, Parameters: request.go
//   - ChatResponse: response.go
//   - Stream, StreamEvent: stream.go, events.go
type Provider interface {
	// Chat generates a complete response (blocking).
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ChatStream starts a streaming request and returns immediately with
	// the stream handle. Request-building and connection failures are
	// returned here; anything that goes wrong after the stream is open is
	// delivered as the stream's terminal event.
	//
	//	stream, err := provider.ChatStream(ctx, req)
	//	if err != nil { return err }
	//	defer stream.Close()
	//	for ev, ok := stream.Next(); ok; ev, ok = stream.Next() {
	//		...
	//	}
	ChatStream(ctx context.Context, req *ChatRequest) (*Stream, error)

	// Name returns the provider identifier.
	Name() ProviderID

	// SupportsModel reports whether the provider recognizes the model.
	SupportsModel(model string) bool
}

// EmbeddingProvider is implemented by providers that also expose an
// embeddings endpoint.
type EmbeddingProvider interface {
	// Embed returns one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([]Embedding, error)
}
