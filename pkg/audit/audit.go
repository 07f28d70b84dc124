// Package audit records orchestration outcomes in an append-only log
package audit

import (
	"time"

	"github.com/google/uuid"

	"relay-swap/pkg/types"
)

// Sink accepts audit entries
type Sink interface {
	Append(entry types.AuditLogEntry) error
}

// Log is a Sink that can be read back and cleared
type Log interface {
	Sink

	// Entries returns a snapshot in insertion order
	Entries() ([]types.AuditLogEntry, error)

	// Clear removes every entry
	Clear() error
}

// NewEntry creates an entry with a fresh id and the current time
func NewEntry(action types.AuditAction, req types.SwapRequest) types.AuditLogEntry {
	return types.AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Request:   req,
	}
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(entry types.AuditLogEntry) error

func (f SinkFunc) Append(entry types.AuditLogEntry) error {
	return f(entry)
}

// tee writes to a primary log and mirrors to secondary sinks
type tee struct {
	Log
	mirrors []Sink
}

// Tee returns a Log that appends to log and every mirror. Reads and Clear
// only touch log. The first append error is returned after all sinks ran.
func Tee(log Log, mirrors ...Sink) Log {
	return &tee{Log: log, mirrors: mirrors}
}

func (t *tee) Append(entry types.AuditLogEntry) error {
	err := t.Log.Append(entry)
	for _, m := range t.mirrors {
		if mErr := m.Append(entry); mErr != nil && err == nil {
			err = mErr
		}
	}
	return err
}
