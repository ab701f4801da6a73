package session

import "log/slog"

// LoggingObserver logs every event using structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{
		logger: slog.Default(),
	}
}

func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Info("session_lifecycle",
		"event", event.Type,
		"uid", event.UID,
		"op_id", event.OpID,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
