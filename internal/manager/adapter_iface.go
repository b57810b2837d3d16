package manager

import "context"

// InferenceAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (e.g., llama.cpp) should satisfy this interface.
type InferenceAdapter interface {
	// Start prepares a session for inference with the given model reference and parameters.
	// For file-backed runtimes the reference is the model path; for a remote server it is
	// the model id. Model loading and process startup must stop when ctx is canceled.
	Start(ctx context.Context, modelRef string, params InferParams) (InferSession, error)
}

// InferSession represents a single inference session.
type InferSession interface {
	// Generate streams tokens for the given prompt. The onToken callback will be invoked
	// for each token. Implementations must return when the context is canceled.
	Generate(ctx context.Context, prompt string, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// InferParams captures generation parameters passed to the adapter.
// Nil sampling fields leave the backend default in place; an explicit zero
// (e.g. greedy temperature 0) is passed through.
type InferParams struct {
	Temperature   *float32
	TopP          *float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          *int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
