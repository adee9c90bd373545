package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shubhamjha-sj/signal/pkg/types"
)

type entry struct {
	mu       sync.Mutex
	turns    []types.Turn
	lastSeen time.Time
}

// MemoryStore is an in-process Store. Each conversation has its own lock;
// the index lock is held only to find or create an entry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	log     *logrus.Entry
}

// NewMemoryStore creates a store whose idle conversations expire after ttl
func NewMemoryStore(ttl time.Duration, log *logrus.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		log:     log.WithField("component", "conversation"),
	}
}

func (s *MemoryStore) lookup(id string, create bool) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[id]; !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

// Get returns a copy of the conversation's turns
func (s *MemoryStore) Get(_ context.Context, id string) ([]types.Turn, error) {
	e := s.lookup(id, false)
	if e == nil {
		return []types.Turn{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s.expired(e) {
		return []types.Turn{}, nil
	}
	out := make([]types.Turn, len(e.turns))
	copy(out, e.turns)
	return out, nil
}

// Append adds turns and truncates under the conversation's lock
func (s *MemoryStore) Append(_ context.Context, id string, turns ...types.Turn) error {
	e := s.lookup(id, true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if s.expired(e) {
		e.turns = nil
	}
	now := s.now()
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		e.turns = append(e.turns, t)
	}
	if len(e.turns) > MaxTurns {
		e.turns = append([]types.Turn(nil), e.turns[len(e.turns)-MaxTurns:]...)
	}
	e.lastSeen = now
	return nil
}

// Clear drops a conversation
func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) expired(e *entry) bool {
	return !e.lastSeen.IsZero() && s.now().Sub(e.lastSeen) > s.ttl
}

// Evict removes conversations idle longer than the TTL and returns how many were dropped
func (s *MemoryStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for id, e := range s.entries {
		e.mu.Lock()
		stale := s.expired(e)
		e.mu.Unlock()
		if stale {
			delete(s.entries, id)
			dropped++
		}
	}
	return dropped
}

// Run evicts idle conversations every interval until ctx is done
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.log.WithField("evicted", n).Debug("Evicted idle conversations")
			}
		}
	}
}
