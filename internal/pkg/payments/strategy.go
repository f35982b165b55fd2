package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/credits"
)

// Strategy is the single place side effects for one payment status occur.
// Final reports whether a handled event settles the payment: final statuses
// commit the processed marker, non-final ones (pending) leave the payment
// open so the terminal webhook can still reconcile it.
type Strategy interface {
	Handle(ctx context.Context, payment *models.Payment, profile *models.Profile) error
	Final() bool
}

// DefaultSubscriptionPeriod is how much one successful subscription payment
// extends the coaching window.
const DefaultSubscriptionPeriod = 30 * 24 * time.Hour

// NewStrategies builds the full status -> strategy dispatch table.
func NewStrategies(store ProfileStore, converter *credits.Converter, subs SubscriptionExtender, notifier Notifier, books Bookkeeper) map[string]Strategy {
	if books == nil {
		books = NopBookkeeper{}
	}
	return map[string]Strategy{
		models.PaymentStatusSuccess: &successStrategy{
			store:     store,
			converter: converter,
			subs:      subs,
			notifier:  notifier,
			books:     books,
			period:    DefaultSubscriptionPeriod,
		},
		models.PaymentStatusFailure: &failureStrategy{store: store, notifier: notifier, books: books},
		models.PaymentStatusClosed:  &closedStrategy{store: store, books: books},
		models.PaymentStatusPending: &pendingStrategy{},
	}
}

type successStrategy struct {
	store     ProfileStore
	converter *credits.Converter
	subs      SubscriptionExtender
	notifier  Notifier
	books     Bookkeeper
	period    time.Duration
}

func (s *successStrategy) Handle(ctx context.Context, payment *models.Payment, profile *models.Profile) error {
	s.cacheStatus(ctx, payment, profile)

	if payment.PaymentType == models.PaymentTypeSubscription {
		if _, err := s.subs.Extend(profile.ID, s.period); err != nil {
			return fmt.Errorf("extend subscription for profile %d: %w", profile.ID, err)
		}
		log.Infof("[Payments] payment %s: subscription extended for profile %d", payment.OrderID, profile.ID)
		s.books.AddProcessed(models.PaymentStatusSuccess, 0)
		s.notifier.Success(profile.ID, profile.Language, 0)
		return nil
	}

	amount, err := s.converter.AmountToCredits(payment.Amount)
	if err != nil {
		// Unresolvable pricing propagates: the payment must stay unprocessed
		// for manual follow-up, never be silently marked successful.
		return fmt.Errorf("convert amount %s for payment %s: %w", payment.Amount, payment.OrderID, err)
	}

	balance, err := s.store.AdjustCredits(ctx, profile.ID, amount)
	if err != nil {
		return fmt.Errorf("credit top-up for profile %d: %w", profile.ID, err)
	}

	log.Infof("[Payments] payment %s: credited %d to profile %d (balance %d)", payment.OrderID, amount, profile.ID, balance)
	s.books.AddProcessed(models.PaymentStatusSuccess, amount)
	s.notifier.Success(profile.ID, profile.Language, amount)
	return nil
}

func (s *successStrategy) Final() bool { return true }

func (s *successStrategy) cacheStatus(ctx context.Context, payment *models.Payment, profile *models.Profile) {
	if err := s.store.SetPaymentStatus(ctx, profile.ID, payment.PaymentType, models.PaymentStatusSuccess); err != nil {
		log.Warnf("[Payments] payment %s: status cache write failed: %v", payment.OrderID, err)
	}
}

type failureStrategy struct {
	store    ProfileStore
	notifier Notifier
	books    Bookkeeper
}

func (s *failureStrategy) Handle(ctx context.Context, payment *models.Payment, profile *models.Profile) error {
	if err := s.store.SetPaymentStatus(ctx, profile.ID, payment.PaymentType, models.PaymentStatusFailure); err != nil {
		log.Warnf("[Payments] payment %s: status cache write failed: %v", payment.OrderID, err)
	}

	log.Warnf("[Payments] payment failed: id=%d order_id=%s profile_id=%d error=%q",
		payment.ID, payment.OrderID, profile.ID, payment.Error)

	s.books.AddProcessed(models.PaymentStatusFailure, 0)
	s.notifier.Failure(profile.ID, profile.Language)
	return nil
}

func (s *failureStrategy) Final() bool { return true }

type closedStrategy struct {
	store ProfileStore
	books Bookkeeper
}

func (s *closedStrategy) Handle(ctx context.Context, payment *models.Payment, profile *models.Profile) error {
	if err := s.store.SetPaymentStatus(ctx, profile.ID, payment.PaymentType, models.PaymentStatusClosed); err != nil {
		log.Warnf("[Payments] payment %s: status cache write failed: %v", payment.OrderID, err)
	}

	log.Infof("[Payments] payment closed: order_id=%s profile_id=%d", payment.OrderID, profile.ID)
	s.books.AddProcessed(models.PaymentStatusClosed, 0)
	return nil
}

func (s *closedStrategy) Final() bool { return true }

// pendingStrategy is deliberately inert. Having it registered keeps "handled,
// intentionally a no-op" distinguishable from "no handler found".
type pendingStrategy struct{}

func (s *pendingStrategy) Handle(ctx context.Context, payment *models.Payment, profile *models.Profile) error {
	log.Debugf("[Payments] payment pending: order_id=%s profile_id=%d", payment.OrderID, profile.ID)
	return nil
}

func (s *pendingStrategy) Final() bool { return false }
