package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/netsupport-service/internal/events"
)

// NotificationService reacts to domain events. Delivery is a structured log
// line for now; email stays reserved for the verification and reset codes.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent("TicketCreated"))
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleEvent("TicketAssigned"))
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleEvent("TicketClosed"))
	n.dispatcher.Subscribe(events.EventPresenceMarked, n.handleEvent("PresenceMarked"))
	n.dispatcher.Subscribe(events.EventAccountDeactivated, n.handleEvent("AccountDeactivated"))
	n.dispatcher.Subscribe(events.EventAccountReactivated, n.handleEvent("AccountReactivated"))
}

func (n *NotificationService) handleEvent(name string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		n.logger.Info(name,
			zap.String("event_id", event.ID),
			zap.String("actor_id", event.ActorID),
			zap.String("actor_role", string(event.ActorRole)),
			zap.Any("payload", event.Payload))
		return nil
	}
}
