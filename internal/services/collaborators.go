package services

import (
	"go.uber.org/zap"
)

// ActivitySink receives notification/activity events (low balance notices,
// renewal failures, pause/resume). Every call site treats it as best-effort:
// a failing sink is logged and never affects the operation that emitted the
// event.
type ActivitySink interface {
	Record(userID uint, event, detail string) error
}

// ActivityLogger is the default sink; it writes events to the structured log.
type ActivityLogger struct {
	logger *zap.Logger
}

func NewActivityLogger(logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{logger: logger}
}

func (a *ActivityLogger) Record(userID uint, event, detail string) error {
	a.logger.Info("activity",
		zap.Uint("user_id", userID),
		zap.String("event", event),
		zap.String("detail", detail),
	)
	return nil
}

// ResourceManager pauses and resumes the resource (device, bot, panel)
// behind a subscription. The protocol adapters register the real
// implementation; failures are logged and never propagated.
type ResourceManager interface {
	Pause(resourceType, resourceID string) error
	Resume(resourceType, resourceID string) error
}

// LoggingResourceManager is a stand-in used until a protocol adapter is
// wired in; it only records the requested lifecycle change.
type LoggingResourceManager struct {
	logger *zap.Logger
}

func NewLoggingResourceManager(logger *zap.Logger) *LoggingResourceManager {
	return &LoggingResourceManager{logger: logger}
}

func (m *LoggingResourceManager) Pause(resourceType, resourceID string) error {
	m.logger.Info("resource pause requested",
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
	)
	return nil
}

func (m *LoggingResourceManager) Resume(resourceType, resourceID string) error {
	m.logger.Info("resource resume requested",
		zap.String("resource_type", resourceType),
		zap.String("resource_id", resourceID),
	)
	return nil
}
