package port

import "context"

// Generator produces text from a prompt.
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
