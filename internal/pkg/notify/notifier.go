package notify

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/OlehKovalenko/CoachPilot/internal/pkg/jobqueue"
)

// QueueNotifier enqueues payment notifications as background jobs. Enqueue
// failures are logged and swallowed: a lost notification never blocks or
// fails payment reconciliation.
type QueueNotifier struct {
	queue *jobqueue.Queue
}

func NewQueueNotifier(queue *jobqueue.Queue) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) Success(profileID uint, language string, credits int) {
	payload := jobqueue.PaymentNotificationPayload{
		ProfileID: profileID,
		Language:  language,
		Credits:   credits,
	}
	if _, err := n.queue.EnqueueJob(jobqueue.JobTypeNotifyPaymentSuccess, payload.ToMap()); err != nil {
		log.Errorf("[Notify] Failed to enqueue success notification for profile %d: %v", profileID, err)
	}
}

func (n *QueueNotifier) Failure(profileID uint, language string) {
	payload := jobqueue.PaymentNotificationPayload{
		ProfileID: profileID,
		Language:  language,
	}
	if _, err := n.queue.EnqueueJob(jobqueue.JobTypeNotifyPaymentFailure, payload.ToMap()); err != nil {
		log.Errorf("[Notify] Failed to enqueue failure notification for profile %d: %v", profileID, err)
	}
}
