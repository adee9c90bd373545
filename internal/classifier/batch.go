package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// ErrEmptyContent is recorded for batch items without text
var ErrEmptyContent = errors.New("empty feedback content")

// Input is one batch item
type Input struct {
	ID       string
	Text     string
	Customer *types.CustomerContext
}

// BatchResult pairs an input with its classification or the reason it was skipped
type BatchResult struct {
	ID     string
	Result Result
	Err    error
}

// ClassifyBatch classifies inputs with at most concurrency items in flight.
// A failed item is recorded in its own BatchResult; the batch always completes.
// Results keep the order of inputs.
func (c *Classifier) ClassifyBatch(ctx context.Context, inputs []Input, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]BatchResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, in := range inputs {
		i, in := i, in
		results[i].ID = in.ID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = fmt.Errorf("batch cancelled: %w", err)
				return nil
			}
			if strings.TrimSpace(in.Text) == "" {
				results[i].Err = ErrEmptyContent
				return nil
			}
			results[i].Result = c.Classify(ctx, in.Text, in.Customer)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
