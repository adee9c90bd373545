package vectorindex

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
)

type memoryEntry struct {
	vector   []float32
	metadata map[string]any
}

// MemoryIndex is a brute-force Index for local development and the sqlite
// profile, where pgvector is not available
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	entries    map[string]memoryEntry
}

// NewMemoryIndex creates an empty index; dimensions <= 0 accepts any length
func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{dimensions: dimensions, entries: make(map[string]memoryEntry)}
}

// Insert stores or replaces the vector for id
func (m *MemoryIndex) Insert(_ context.Context, id string, vector []float32, metadata map[string]any) error {
	if m.dimensions > 0 && len(vector) != m.dimensions {
		return fmt.Errorf("vector has %d dimensions, index expects %d", len(vector), m.dimensions)
	}
	v := make([]float32, len(vector))
	copy(v, vector)

	m.mu.Lock()
	m.entries[id] = memoryEntry{vector: v, metadata: metadata}
	m.mu.Unlock()
	return nil
}

// Query ranks every entry by cosine similarity
func (m *MemoryIndex) Query(_ context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	if topK < 1 {
		return nil, nil
	}

	m.mu.RLock()
	matches := make([]Match, 0, len(m.entries))
	for id, e := range m.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		matches = append(matches, Match{ID: id, Score: cosine(vector, e.vector), Metadata: e.metadata})
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteByIDs removes vectors; unknown ids are ignored
func (m *MemoryIndex) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	for _, id := range ids {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	return nil
}

// Count returns the number of stored vectors
func (m *MemoryIndex) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func matchesFilter(meta, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
