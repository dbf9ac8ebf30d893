package service

import (
	"context"
)

// Generator is a single-shot text generation call against an external model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
