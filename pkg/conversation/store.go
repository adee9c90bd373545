package conversation

import (
	"context"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

// MaxTurns is the number of most recent turns kept per conversation
const MaxTurns = 20

// Store keeps conversation history keyed by conversation id
type Store interface {
	// Get returns the turns oldest first; an unknown id yields an empty slice
	Get(ctx context.Context, id string) ([]types.Turn, error)
	// Append adds turns and truncates to the most recent MaxTurns in one step
	Append(ctx context.Context, id string, turns ...types.Turn) error
	Clear(ctx context.Context, id string) error
}
