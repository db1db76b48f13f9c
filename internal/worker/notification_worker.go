package worker

import (
	"github.com/spec-kit/task-service/internal/service"
)

// StartNotificationWorker registers notification handlers on the event
// dispatcher. Handlers run in-process; there is no queue to drain.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
