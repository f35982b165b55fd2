package payments

import (
	"context"
	"time"

	"github.com/OlehKovalenko/CoachPilot/app/models"
)

// PaymentRepo is the slice of the payment repository the processor needs.
// Implementations must provide compare-and-set semantics for MarkProcessed.
type PaymentRepo interface {
	UpdateStatusByOrderID(orderID, status, errText string) (*models.Payment, error)
	GetByID(id uint) (*models.Payment, error)
	MarkProcessed(id uint) (bool, error)
}

// ProfileStore is the cached account state port. AdjustCredits must be an
// atomic increment: no lost updates under concurrent top-ups.
type ProfileStore interface {
	GetRecord(ctx context.Context, profileID uint) (*models.Profile, error)
	AdjustCredits(ctx context.Context, profileID uint, delta int) (int, error)
	SetPaymentStatus(ctx context.Context, profileID uint, paymentType, status string) error
}

// Notifier dispatches user-facing payment notifications. Calls are
// fire-and-forget: they enqueue and return, delivery is at-least-once and
// duplicate notifications are tolerable.
type Notifier interface {
	Success(profileID uint, language string, credits int)
	Failure(profileID uint, language string)
}

// SubscriptionExtender extends a profile's subscription window after a
// successful subscription payment.
type SubscriptionExtender interface {
	Extend(profileID uint, period time.Duration) (*models.Subscription, error)
}

// Bookkeeper records reconciliation counters. Best-effort; failures must not
// affect the payment outcome.
type Bookkeeper interface {
	AddProcessed(status string, credits int)
}

// NopBookkeeper discards all counters.
type NopBookkeeper struct{}

func (NopBookkeeper) AddProcessed(string, int) {}
