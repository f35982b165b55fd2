package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/OlehKovalenko/CoachPilot/app/controllers"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/middleware"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Public gateway callback. The gateway authenticates by payload signature,
	// not by API key, so this route stays outside the protected group.
	app.Post("/payment/callback", controllers.HandlePaymentCallback)

	// Internal API for the bot, behind the shared key.
	api := app.Group("/api", limiter.New())
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Post("/payments/checkout", controllers.HandleCreateCheckout)
	v1.Get("/payments/:order_id", controllers.HandleGetPayment)
	v1.Get("/profiles/:profile_id/payments", controllers.HandleListProfilePayments)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
