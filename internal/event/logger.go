package event

import (
	"context"
	"log/slog"
)

// slog attribute keys shared by every mirrored event.
const (
	attrEventID   = "event.id"
	attrEventType = "event.type"
	attrSource    = "event.source"
)

// Logger mirrors bus traffic to slog so a daemon run leaves a readable
// trail of domain activity.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Attach subscribes the logger to every domain event type on the bus.
func (l *Logger) Attach(b *Bus) error {
	for _, t := range []Type{
		ProjectCreated,
		TaskCreated,
		TaskDeleted,
		TaskStatusChanged,
		TaskReplaced,
		TaskAssigned,
		TaskUnassigned,
		ClockAdvanced,
	} {
		eventType := t
		err := b.SubscribeAsync(eventType, "event_logger_"+string(eventType), func(msg *Message) error {
			l.logger.LogAttrs(context.Background(), slog.LevelInfo, string(msg.Type),
				slog.String(attrEventID, msg.ID),
				slog.String(attrEventType, string(msg.Type)),
				slog.String(attrSource, msg.Source),
				slog.String("data", string(msg.Data)),
			)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
