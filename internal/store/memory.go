// Package store keeps the document result between the capture steps. Results
// expire; nothing outlives the verification session.
package store

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local result store.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	data    map[string]string
	savedAt time.Time
}

// NewMemory creates a store whose result expires after ttl. Zero disables
// expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now}
}

// SaveDocument replaces the stored document result.
func (m *Memory) SaveDocument(_ context.Context, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = copyFields(data)
	m.savedAt = m.now()
	return nil
}

// LoadDocument returns the stored result and whether one was present.
func (m *Memory) LoadDocument(context.Context) (map[string]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, false, nil
	}
	if m.ttl > 0 && m.now().Sub(m.savedAt) > m.ttl {
		m.data = nil
		return nil, false, nil
	}
	return copyFields(m.data), true, nil
}

func copyFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Clear removes the stored result.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
