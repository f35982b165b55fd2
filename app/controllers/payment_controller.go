package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/app/repository"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/liqpay"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/payments"
)

var (
	paymentProcessor *payments.Processor
	gatewayClient    *liqpay.Client
)

// InitializePaymentController wires the processor and gateway client used by
// the payment handlers. Must be called once during startup.
func InitializePaymentController(processor *payments.Processor, client *liqpay.Client) {
	paymentProcessor = processor
	gatewayClient = client
}

// HandlePaymentCallback receives gateway webhook deliveries. The gateway
// retries on any non-2xx response, so the status code is the retry contract:
// 200 means handled or intentionally dropped, 400 means the payload can never
// be processed, 500 means redeliver later.
func HandlePaymentCallback(c *fiber.Ctx) error {
	data := strings.TrimSpace(c.FormValue("data"))
	signature := strings.TrimSpace(c.FormValue("signature"))
	if data == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Missing data field"})
	}

	params, err := gatewayClient.DecodeData(data, signature)
	if err != nil {
		var vErr *liqpay.ParamValidationError
		if errors.As(err, &vErr) {
			log.Warnf("[Payments] callback rejected: %v", vErr)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": vErr.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Malformed callback data"})
	}

	orderID := params["order_id"]
	status := params["status"]
	if orderID == "" || status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Callback missing order_id or status"})
	}
	if !models.IsKnownPaymentStatus(status) {
		// Still recorded onto the payment; the processor drops it unhandled.
		log.Warnf("[Payments] callback carries unknown status %q for order %s", status, orderID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := paymentProcessor.HandleWebhookEvent(ctx, orderID, status, params["err_description"]); err != nil {
		// Left unprocessed; a redelivery will retry.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// CreateCheckoutRequest is the internal API payload for starting a payment.
type CreateCheckoutRequest struct {
	ProfileID   uint   `json:"profile_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"required,oneof=UAH USD EUR"`
	PaymentType string `json:"payment_type" validate:"required,oneof=credits subscription"`
}

// HandleCreateCheckout creates a pending payment record and returns the signed
// hosted checkout link for it.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Malformed JSON body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": err.Error()})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Amount must be a positive decimal"})
	}

	factory := repository.GetGlobalFactory()
	if _, err := factory.GetProfileRepository().GetByID(req.ProfileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	action := liqpay.ActionPay
	if req.PaymentType == models.PaymentTypeSubscription {
		action = liqpay.ActionSubscribe
	}

	payment := &models.Payment{
		OrderID:     uuid.New().String(),
		ProfileID:   req.ProfileID,
		Amount:      amount.Round(2),
		Currency:    req.Currency,
		PaymentType: req.PaymentType,
		Status:      models.PaymentStatusPending,
	}

	checkout, err := gatewayClient.BuildCheckout(action, payment.Amount, payment.Currency, payment.OrderID, payment.PaymentType, payment.ProfileID)
	if err != nil {
		var vErr *liqpay.ParamValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": vErr.Error()})
		}
		log.Errorf("[Payments] checkout build failed for profile %d: %v", req.ProfileID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if err := factory.GetPaymentRepository().Create(payment); err != nil {
		log.Errorf("[Payments] failed to persist checkout for profile %d: %v", req.ProfileID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":     payment.OrderID,
		"checkout_url": checkout.URL,
		"data":         checkout.Data,
		"signature":    checkout.Signature,
	})
}

// HandleGetPayment returns the current state of one payment by order id.
func HandleGetPayment(c *fiber.Ctx) error {
	orderID := strings.TrimSpace(c.Params("order_id"))
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Missing order_id"})
	}

	payment, err := repository.GetGlobalFactory().GetPaymentRepository().GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"order_id":     payment.OrderID,
		"profile_id":   payment.ProfileID,
		"amount":       payment.Amount.StringFixed(2),
		"currency":     payment.Currency,
		"payment_type": payment.PaymentType,
		"status":       payment.Status,
		"processed":    payment.Processed,
		"error":        payment.Error,
		"created_at":   payment.CreatedAt,
		"updated_at":   payment.UpdatedAt,
	})
}

// HandleListProfilePayments returns the payment history of one profile.
func HandleListProfilePayments(c *fiber.Ctx) error {
	profileID, err := c.ParamsInt("profile_id")
	if err != nil || profileID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Invalid profile_id"})
	}

	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := repository.GetGlobalFactory().GetPaymentRepository().ListByProfile(uint(profileID), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	items := make([]fiber.Map, 0, len(records))
	for _, p := range records {
		items = append(items, fiber.Map{
			"order_id":     p.OrderID,
			"amount":       p.Amount.StringFixed(2),
			"currency":     p.Currency,
			"payment_type": p.PaymentType,
			"status":       p.Status,
			"processed":    p.Processed,
			"created_at":   p.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"payments": items, "offset": offset, "limit": limit})
}
