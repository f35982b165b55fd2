package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OlehKovalenko/CoachPilot/app/models"
)

func TestNewStrategies_CoversAllKnownStatuses(t *testing.T) {
	strategies := NewStrategies(newFakeProfileStore(), testConverter(), &fakeSubs{}, &fakeNotifier{}, nil)

	for _, status := range []string{
		models.PaymentStatusPending,
		models.PaymentStatusSuccess,
		models.PaymentStatusFailure,
		models.PaymentStatusClosed,
	} {
		assert.NotNil(t, strategies[status], "status %q must have a strategy", status)
	}

	assert.Nil(t, strategies["reversed"], "unknown statuses stay unregistered")
}

func TestStrategyFinality(t *testing.T) {
	strategies := NewStrategies(newFakeProfileStore(), testConverter(), &fakeSubs{}, &fakeNotifier{}, nil)

	assert.False(t, strategies[models.PaymentStatusPending].Final())
	assert.True(t, strategies[models.PaymentStatusSuccess].Final())
	assert.True(t, strategies[models.PaymentStatusFailure].Final())
	assert.True(t, strategies[models.PaymentStatusClosed].Final())
}
