package eventbus

import (
	"context"
	"sync"
)

// Memory is an in-memory Bus used by tests.
type Memory struct {
	mu           sync.Mutex
	Emitted      []Event
	ProcessCalls int
	CleanCalls   int
}

// NewMemory returns an empty Memory bus.
func NewMemory() *Memory {
	return &Memory{}
}

// Emit records ev.
func (m *Memory) Emit(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emitted = append(m.Emitted, ev)
	return nil
}

// ProcessEvents records a call.
func (m *Memory) ProcessEvents(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessCalls++
	return nil
}

// CleanEvents records a call.
func (m *Memory) CleanEvents(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CleanCalls++
	return nil
}

var _ Bus = (*Memory)(nil)
