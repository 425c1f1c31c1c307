package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/observability"
)

// NotificationService consumes ticket lifecycle events and fans them out
// to the notification sinks: today the structured activity log and the
// event counters. Delivery piggybacks on the synchronous dispatcher.
type NotificationService struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, metrics: metrics}
}

// Register subscribes the service to every lifecycle event type.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	types := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketCommentAdded,
		events.EventTicketTrashed,
		events.EventTicketRestored,
		events.EventTicketPurged,
		events.EventReportGenerated,
	}
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *NotificationService) handle(_ context.Context, event events.Event) error {
	s.metrics.RecordEvent(string(event.Type))
	s.logger.Info("ticket activity",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload),
	)
	return nil
}
