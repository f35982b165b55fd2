package counter

import (
	"github.com/gofiber/fiber/v2/log"
)

// Recorder feeds reconciliation outcomes into the Redis counters. Counter
// failures are logged and dropped so bookkeeping never affects a payment.
type Recorder struct{}

func (Recorder) AddProcessed(status string, credits int) {
	if err := AddProcessedPayment(status, credits); err != nil {
		log.Errorf("[Metrics] Failed to count processed payment (status %s): %v", status, err)
	}
}
