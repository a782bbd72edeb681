package vectorindex

import (
	"context"
	"sync"
)

// Memory keeps everything in process memory. It is lost on restart.
type Memory struct {
	mu      sync.RWMutex
	handles map[string]map[string]Record
}

func NewMemory() *Memory {
	return &Memory{handles: make(map[string]map[string]Record)}
}

func (m *Memory) Insert(_ context.Context, handle string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.handles[handle]
	for _, r := range records {
		if _, ok := existing[r.ID]; ok {
			return ErrChunksExist
		}
	}
	m.put(handle, records)
	return nil
}

func (m *Memory) Upsert(_ context.Context, handle string, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(handle, records)
	return nil
}

func (m *Memory) put(handle string, records []Record) {
	bucket, ok := m.handles[handle]
	if !ok {
		bucket = make(map[string]Record, len(records))
		m.handles[handle] = bucket
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		bucket[r.ID] = r
	}
}

func (m *Memory) Query(_ context.Context, handle string, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket := m.handles[handle]
	matches := make([]Match, 0, len(bucket))
	for _, r := range bucket {
		matches = append(matches, Match{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Distance: 1 - cosineSimilarity(vector, r.Vector),
		})
	}
	return rank(matches, k), nil
}

func (m *Memory) Count(_ context.Context, handle string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles[handle]), nil
}
