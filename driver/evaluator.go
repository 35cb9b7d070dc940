package driver

import (
	"context"

	"github.com/kjk/modelrun/kvfile"
)

// Evaluator computes outputs of a model for given inputs
type Evaluator interface {
	Evaluate(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error)
}

// EvaluatorFunc adapts a function to Evaluator
type EvaluatorFunc func(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, in *kvfile.Record) (*kvfile.Record, error) {
	return f(ctx, in)
}
