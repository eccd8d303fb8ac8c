package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/events"
	"github.com/spec-kit/order-tagger/internal/observability"
)

// AuditService records authentication events as structured log lines and
// counters.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAutoLoginSucceeded, a.handleInfo)
	a.dispatcher.Subscribe(events.EventAutoLoginSkipped, a.handleInfo)
	a.dispatcher.Subscribe(events.EventPasswordLogin, a.handleInfo)
	a.dispatcher.Subscribe(events.EventLogout, a.handleInfo)
	a.dispatcher.Subscribe(events.EventAutoLoginRejected, a.handleRejection)
	a.dispatcher.Subscribe(events.EventPasswordRejected, a.handleRejection)
}

func (a *AuditService) handleInfo(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), a.fields(event)...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) handleRejection(_ context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type), a.fields(event)...)
	a.metrics.RecordAuthEvent(string(event.Type))
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor.UserID != nil {
		fields = append(fields, zap.Int64("user_id", *event.Actor.UserID))
	}
	if event.Actor.Username != "" {
		fields = append(fields, zap.String("username", event.Actor.Username))
	}
	if event.Actor.Method != "" {
		fields = append(fields, zap.String("method", string(event.Actor.Method)))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	return fields
}
