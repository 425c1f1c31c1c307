package worker

import (
	"github.com/helpdesk-go/helpdesk/internal/events"
	"github.com/helpdesk-go/helpdesk/internal/service"
)

// StartNotificationWorker subscribes the notification sinks to the
// event dispatcher.
func StartNotificationWorker(notifications *service.NotificationService, dispatcher events.Dispatcher) {
	if notifications == nil || dispatcher == nil {
		return
	}
	notifications.Register(dispatcher)
}
