package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_QueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	require.NoError(t, idx.Insert(ctx, "east", []float32{1, 0}, map[string]any{"product": "r2"}))
	require.NoError(t, idx.Insert(ctx, "north", []float32{0, 1}, map[string]any{"product": "d1"}))
	require.NoError(t, idx.Insert(ctx, "diag", []float32{1, 1}, map[string]any{"product": "r2"}))

	matches, err := idx.Query(ctx, []float32{1, 0.1}, 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].ID)
	assert.Equal(t, "diag", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)

	matches, err = idx.Query(ctx, []float32{0, 1}, 5, map[string]any{"product": "r2"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "diag", matches[0].ID)
}

func TestMemoryIndex_InsertAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(2)

	assert.Error(t, idx.Insert(ctx, "bad", []float32{1, 2, 3}, nil))

	require.NoError(t, idx.Insert(ctx, "a", []float32{1, 0}, nil))
	require.NoError(t, idx.Insert(ctx, "a", []float32{0, 1}, nil))
	n, _ := idx.Count(ctx)
	assert.Equal(t, int64(1), n)

	require.NoError(t, idx.DeleteByIDs(ctx, []string{"a", "missing"}))
	n, _ = idx.Count(ctx)
	assert.Equal(t, int64(0), n)

	matches, err := idx.Query(ctx, []float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
