package audit

import (
	"sync"

	"relay-swap/pkg/types"
)

// MemoryLog keeps entries in process memory
type MemoryLog struct {
	mu      sync.RWMutex
	entries []types.AuditLogEntry
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog creates an empty in-memory log
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Append(entry types.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryLog) Entries() ([]types.AuditLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryLog) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	return nil
}
