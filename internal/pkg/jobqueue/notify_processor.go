package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/app/repository"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/env"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/mail"
)

// processNotificationJob delivers a payment outcome or subscription expiry
// message to the profile the job names. Missing delivery channels are not an
// error: a profile without an email simply gets nothing and the job completes.
func (q *Queue) processNotificationJob(ctx context.Context, job *Job) error {
	payload, err := PaymentNotificationPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if payload.ProfileID == 0 {
		return fmt.Errorf("notification payload missing profile_id")
	}

	profile, err := repository.GetGlobalFactory().GetProfileRepository().GetByID(payload.ProfileID)
	if err != nil {
		return fmt.Errorf("load profile %d: %w", payload.ProfileID, err)
	}

	language := payload.Language
	if language == "" {
		language = profile.Language
	}

	subject, body := renderNotification(job.Type, language, payload.Credits)
	if subject == "" {
		return fmt.Errorf("no template for job type %s", job.Type)
	}

	if profile.Email == "" {
		log.Infof("[Notify] Profile %d has no email, skipping %s delivery", profile.ID, job.Type)
		return nil
	}

	if err := mail.SendMail(profile.Email, subject, body); err != nil {
		return fmt.Errorf("send %s to profile %d: %w", job.Type, profile.ID, err)
	}

	log.Infof("[Notify] Delivered %s to profile %d", job.Type, profile.ID)
	return nil
}

// renderNotification builds the localized subject and body for a job type.
// Unknown combinations return an empty subject.
func renderNotification(jobType JobType, language string, credits int) (string, string) {
	support := env.GetEnv("SUPPORT_CONTACT", "support@coachpilot.app")

	if language != models.LanguageEnglish {
		language = models.LanguageUkrainian
	}

	switch jobType {
	case JobTypeNotifyPaymentSuccess:
		if language == models.LanguageEnglish {
			if credits > 0 {
				return "Payment received", fmt.Sprintf("<p>Your payment was successful. %d credits have been added to your balance.</p>", credits)
			}
			return "Subscription extended", "<p>Your payment was successful. Your coaching subscription has been extended.</p>"
		}
		if credits > 0 {
			return "Оплату отримано", fmt.Sprintf("<p>Оплата пройшла успішно. На ваш баланс зараховано %d кредитів.</p>", credits)
		}
		return "Підписку продовжено", "<p>Оплата пройшла успішно. Вашу підписку на коучинг продовжено.</p>"
	case JobTypeNotifyPaymentFailure:
		if language == models.LanguageEnglish {
			return "Payment failed", fmt.Sprintf("<p>Unfortunately your payment did not go through. Please try again or contact us at %s.</p>", support)
		}
		return "Оплата не пройшла", fmt.Sprintf("<p>На жаль, оплата не пройшла. Спробуйте ще раз або напишіть нам: %s.</p>", support)
	case JobTypeNotifySubscriptionExpired:
		if language == models.LanguageEnglish {
			return "Subscription expired", "<p>Your coaching subscription has expired. Renew it to keep your sessions going.</p>"
		}
		return "Підписка закінчилась", "<p>Термін вашої підписки на коучинг закінчився. Поновіть її, щоб продовжити заняття.</p>"
	}

	return "", ""
}
