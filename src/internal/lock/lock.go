// Package lock serializes work per key. The ledger takes one lock per account
// and the loan service one per loan, so unrelated keys never wait on each other.
package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrEmptyKey = errors.New("lock key cannot be empty")
	ErrNilFunc  = errors.New("lock function is nil")
)

// Locker runs fn while holding the lock named by key. Acquisition gives up
// when ctx is done. The error returned by fn is passed through unchanged.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

func AccountKey(accountID string) string {
	return "lock:account:" + accountID
}

func LoanKey(loanID string) string {
	return "lock:loan:" + loanID
}

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// Memory is an in-process Locker. Entries are reference counted and dropped
// once no caller holds or waits on them.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

func (m *Memory) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return ErrNilFunc
	}

	entry := m.acquire(key)
	defer m.release(key, entry)

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-entry.sem }()

	return fn(ctx)
}

func (m *Memory) acquire(key string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	return entry
}

func (m *Memory) release(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
