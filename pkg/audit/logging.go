package audit

import (
	"encoding/json"

	"go.uber.org/zap"

	"relay-swap/pkg/types"
)

// LoggingSink mirrors entries to a zap logger
type LoggingSink struct {
	logger *zap.Logger
}

// NewLoggingSink creates a sink writing to logger
func NewLoggingSink(logger *zap.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) Append(entry types.AuditLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.logger.Info("[AUDIT]",
		zap.String("id", entry.ID),
		zap.String("action", string(entry.Action)),
		zap.String("entry", string(data)))
	return nil
}
