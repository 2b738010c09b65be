package aiusage

import (
	"context"
	"sync"
)

var (
	_ Quota = (*Store)(nil)
	_ Quota = (*MemoryStore)(nil)
)

type usage struct {
	remaining int
	month     string
}

// MemoryStore keeps quotas in process; counts reset on restart.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]usage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string]usage{}}
}

func (m *MemoryStore) UseToken(_ context.Context, uid, month string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[uid]
	if !ok {
		return ErrInsufficientTokens
	}
	if row.month < month {
		row = usage{remaining: DefaultTokens, month: month}
	}
	if row.remaining <= 0 {
		return ErrInsufficientTokens
	}
	row.remaining--
	m.rows[uid] = row
	return nil
}

func (m *MemoryStore) EnsureUser(_ context.Context, uid, month string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[uid]; !ok {
		m.rows[uid] = usage{remaining: DefaultTokens, month: month}
	}
	return nil
}

func (m *MemoryStore) Remaining(_ context.Context, uid, month string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[uid]
	if !ok || row.month < month {
		return DefaultTokens, nil
	}
	return row.remaining, nil
}
