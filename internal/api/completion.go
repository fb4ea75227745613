package api

type CompletionRequest struct {
	// Required
	Prompt string

	// Optional params
	SystemPrompt string
	ModelName    string
	Temperature  float32
	MaxTokens    int
}

// CompletionStream yields text deltas. Recv returns io.EOF
// once the stream is exhausted.
type CompletionStream interface {
	Recv() (string, error)
	Close() error
}
