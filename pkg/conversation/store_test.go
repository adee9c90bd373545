package conversation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhamjha-sj/signal/pkg/logger"
	"github.com/Shubhamjha-sj/signal/pkg/types"
)

func turn(i int) types.Turn {
	role := types.RoleUser
	if i%2 == 1 {
		role = types.RoleAssistant
	}
	return types.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}
}

// exerciseStore runs the behaviour every Store must share
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	empty, err := s.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Append(ctx, "c1", turn(i)))
	}
	require.NoError(t, s.Append(ctx, "c2", turn(0), turn(1)))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, MaxTurns)
	assert.Equal(t, "turn 5", got[0].Content)
	assert.Equal(t, "turn 24", got[MaxTurns-1].Content)
	assert.False(t, got[0].CreatedAt.IsZero())

	other, err := s.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, other, 2)

	require.NoError(t, s.Clear(ctx, "c1"))
	got, err = s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour, logger.Discard()))
}

func TestMemoryStore_ConcurrentConversations(t *testing.T) {
	s := NewMemoryStore(time.Hour, logger.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for c := 0; c < 8; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", c)
			for i := 0; i < 30; i++ {
				_ = s.Append(ctx, id, types.Turn{Role: types.RoleUser, Content: id})
			}
		}(c)
	}
	wg.Wait()

	for c := 0; c < 8; c++ {
		id := fmt.Sprintf("conv-%d", c)
		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, got, MaxTurns)
		for _, tr := range got {
			assert.Equal(t, id, tr.Content)
		}
	}
}

func TestMemoryStore_EvictsIdleConversations(t *testing.T) {
	s := NewMemoryStore(time.Minute, logger.Discard())
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "stale", turn(0)))
	now = now.Add(30 * time.Second)
	require.NoError(t, s.Append(ctx, "fresh", turn(0)))
	now = now.Add(45 * time.Second)

	got, err := s.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, 1, s.Evict())
	got, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, time.Hour, logger.Discard())

	exerciseStore(t, s)

	require.NoError(t, s.Append(context.Background(), "ttl", turn(0)))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"ttl"))
	mr.FastForward(2 * time.Hour)
	got, err := s.Get(context.Background(), "ttl")
	require.NoError(t, err)
	assert.Empty(t, got)
}
