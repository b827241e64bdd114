package lock

import (
	"context"
	"errors"
	"sync"
)

var errNotLocked = errors.New("unlock of unlocked lock")

// MemLocker - блокировка внутри одного процесса
type MemLocker struct {
	mu     sync.Mutex
	state  sync.Mutex
	locked bool
}

func NewMemLocker() *MemLocker {
	return &MemLocker{}
}

func (m *MemLocker) TryLock(_ context.Context) (bool, error) {
	if !m.mu.TryLock() {
		return false, nil
	}
	m.state.Lock()
	m.locked = true
	m.state.Unlock()
	return true, nil
}

func (m *MemLocker) Unlock(_ context.Context) error {
	m.state.Lock()
	defer m.state.Unlock()
	if !m.locked {
		return errNotLocked
	}
	m.locked = false
	m.mu.Unlock()
	return nil
}
