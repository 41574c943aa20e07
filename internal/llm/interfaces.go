package llm

import "context"

// TextGenerator is the interface for model text completion.
// Extraction, synthesis, expansion and recommendation prompts all use
// single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Returns float32 slices; callers convert to float64 for storage.
// EmbedBatch must return one vector per input, in input order.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
}
