package worker

import (
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a relay
// is given, forwards every event to it.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, relay *RedisRelay) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher != nil && relay != nil {
		dispatcher.SubscribeAll(relay.Handle)
	}
}
