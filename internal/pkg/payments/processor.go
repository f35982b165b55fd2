package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/profiles"
)

// Processor reconciles gateway webhook events into account state. It is
// constructed once with its collaborators injected and carries no global
// state; correctness under concurrency rests on the store contracts
// (compare-and-set processed marker, atomic credit increments) plus the
// per-order in-flight guard below.
type Processor struct {
	payments   PaymentRepo
	profiles   ProfileStore
	strategies map[string]Strategy

	// inflight holds order ids currently being reconciled so two concurrent
	// deliveries of the same webhook cannot both run side effects.
	inflight sync.Map
}

// NewProcessor creates a payment processor.
func NewProcessor(paymentRepo PaymentRepo, profileStore ProfileStore, strategies map[string]Strategy) *Processor {
	return &Processor{
		payments:   paymentRepo,
		profiles:   profileStore,
		strategies: strategies,
	}
}

// HandleWebhookEvent applies one gateway status event. The order id is the
// idempotency key; events for unknown orders are dropped (retrying cannot
// succeed without a record). A non-nil return means the event was left
// unprocessed and a redelivery should retry it.
func (p *Processor) HandleWebhookEvent(ctx context.Context, orderID, status, errDesc string) error {
	payment, err := p.payments.UpdateStatusByOrderID(orderID, status, errDesc)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Payments] webhook for unknown order %s (status %s) dropped", orderID, status)
			return nil
		}
		return fmt.Errorf("payments: update status for order %s: %w", orderID, err)
	}

	return p.processPayment(ctx, payment)
}

// processPayment runs the status strategy and commits the processed marker.
// Side effects run before the marker write: a crash in between can duplicate
// one top-up after redelivery, but a top-up is never lost.
func (p *Processor) processPayment(ctx context.Context, payment *models.Payment) error {
	if payment.Processed {
		log.Debugf("[Payments] payment %s already processed, skipping", payment.OrderID)
		return nil
	}

	if _, busy := p.inflight.LoadOrStore(payment.OrderID, struct{}{}); busy {
		log.Debugf("[Payments] payment %s already being reconciled, skipping duplicate delivery", payment.OrderID)
		return nil
	}
	defer p.inflight.Delete(payment.OrderID)

	// Re-read under the guard: a racing delivery may have finished between
	// our status update and acquiring the guard.
	current, err := p.payments.GetByID(payment.ID)
	if err != nil {
		return fmt.Errorf("payments: reload payment %s: %w", payment.OrderID, err)
	}
	if current.Processed {
		log.Debugf("[Payments] payment %s processed by concurrent delivery, skipping", current.OrderID)
		return nil
	}

	profile, err := p.profiles.GetRecord(ctx, current.ProfileID)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			// Data inconsistency, not a transient condition: log and drop
			// without marking processed so the record surfaces in audits.
			log.Errorf("[Payments] payment %s references unknown profile %d, dropped", current.OrderID, current.ProfileID)
			return nil
		}
		return fmt.Errorf("payments: load profile for order %s: %w", current.OrderID, err)
	}

	strategy, ok := p.strategies[current.Status]
	if !ok {
		log.Warnf("[Payments] no strategy for status %q (order %s), payment left unprocessed", current.Status, current.OrderID)
		return nil
	}

	if err := strategy.Handle(ctx, current, profile); err != nil {
		// The payment stays processed=false, so a redelivered webhook will
		// retry the same reconciliation.
		log.Errorf("[Payments] reconciliation of order %s failed: %v", current.OrderID, err)
		return err
	}

	if !strategy.Final() {
		// Non-final status (pending): handled, but the payment stays open for
		// the terminal webhook.
		return nil
	}

	won, err := p.payments.MarkProcessed(current.ID)
	if err != nil {
		log.Errorf("[Payments] marking order %s processed failed: %v", current.OrderID, err)
		return fmt.Errorf("payments: mark processed for order %s: %w", current.OrderID, err)
	}
	if !won {
		log.Debugf("[Payments] order %s was already marked processed", current.OrderID)
	}
	return nil
}
