package jobqueue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OlehKovalenko/CoachPilot/app/models"
)

func TestJobTypeConstants(t *testing.T) {
	assert.Equal(t, JobType("notify_payment_success"), JobTypeNotifyPaymentSuccess)
	assert.Equal(t, JobType("notify_payment_failure"), JobTypeNotifyPaymentFailure)
	assert.Equal(t, JobType("notify_subscription_expired"), JobTypeNotifySubscriptionExpired)
}

func TestPaymentNotificationPayloadRoundTrip(t *testing.T) {
	payload := PaymentNotificationPayload{
		ProfileID: 42,
		Language:  models.LanguageEnglish,
		Credits:   130,
	}

	restored, err := PaymentNotificationPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{
		ID:         "test-job",
		Type:       JobTypeNotifyPaymentSuccess,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("smtp unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	require.NotNil(t, job.CompletedAt)
}

func TestIsRetryableExhaustsBudget(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsFailed("first")
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("second")
	assert.False(t, job.IsRetryable(), "retry budget exhausted after MaxRetries failures")
}

func TestRenderNotification(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		language string
		credits  int
		want     string
	}{
		{"success with credits en", JobTypeNotifyPaymentSuccess, models.LanguageEnglish, 130, "130 credits"},
		{"success with credits uk", JobTypeNotifyPaymentSuccess, models.LanguageUkrainian, 200, "200 кредитів"},
		{"subscription success en", JobTypeNotifyPaymentSuccess, models.LanguageEnglish, 0, "subscription has been extended"},
		{"failure names support contact", JobTypeNotifyPaymentFailure, models.LanguageEnglish, 0, "contact us at"},
		{"expiry uk", JobTypeNotifySubscriptionExpired, models.LanguageUkrainian, 0, "закінчився"},
		{"unknown language falls back to uk", JobTypeNotifyPaymentFailure, "de", 0, "не пройшла"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := renderNotification(tt.jobType, tt.language, tt.credits)
			require.NotEmpty(t, subject)
			assert.True(t, strings.Contains(body, tt.want), "body %q should contain %q", body, tt.want)
		})
	}
}

func TestRenderNotificationUnknownType(t *testing.T) {
	subject, body := renderNotification(JobType("bogus"), models.LanguageEnglish, 0)
	assert.Empty(t, subject)
	assert.Empty(t, body)
}
