package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"ecommerce-backend/internal/service"
)

type WebhookHandler struct {
	webhookService *service.WebhookService
}

func NewWebhookHandler(webhookService *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandlePaymentWebhook ingests provider notifications --> POST /webhooks/payments
// The body must reach verification as the exact bytes received on the wire:
// the signature covers the raw payload, so no binding or re-serialization
// happens before the service sees it.
func (h *WebhookHandler) HandlePaymentWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil || len(payload) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing raw body"})
	}

	signature := c.Request().Header.Get("Stripe-Signature")

	if err := h.webhookService.HandleEvent(c.Request().Context(), payload, signature); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
