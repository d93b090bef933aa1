package llm

import "context"

// TextGenerator is the interface for single-shot LLM text completion.
// The assistant composes one prompt string per turn; there is no chat
// message structure and no streaming.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}
