package service

import (
	"context"
	"errors"
	"time"

	"ecommerce-backend/internal/apperr"
	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/payment"
	"ecommerce-backend/internal/repository"
)

// EventHandler applies one verified payment outcome to order state. Handlers
// must be idempotent: the ledger guarantees at most one invocation per event
// id, but the state transition itself also tolerates replays.
type EventHandler interface {
	Handle(ctx context.Context, paymentIntentID string, occurredAt time.Time) error
}

// WebhookService runs the webhook pipeline: verify authenticity, claim the
// event id in the idempotency ledger, then dispatch to the handler for the
// event type. The handler table is built once at construction; adding an
// event type means adding a handler here, not touching the dispatch loop.
type WebhookService struct {
	events   *repository.WebhookEventRepository
	gateway  *payment.Client
	handlers map[string]EventHandler
}

func NewWebhookService(events *repository.WebhookEventRepository, gateway *payment.Client,
	success, failed, cancelled EventHandler) *WebhookService {
	return &WebhookService{
		events:  events,
		gateway: gateway,
		handlers: map[string]EventHandler{
			payment.EventPaymentSucceeded: success,
			payment.EventPaymentFailed:    failed,
			payment.EventPaymentCanceled:  cancelled,
		},
	}
}

// HandleEvent processes one raw webhook delivery. A nil return means the
// provider should receive 200 and stop retrying; that includes duplicate
// deliveries and verified events of unknown type. Verification failures
// never touch the ledger.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyAndParse(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureInvalid) {
			return apperr.ErrSignatureInvalid
		}
		logger.Error().Err(err).Msg("Error parsing verified webhook payload")
		return apperr.ErrSignatureInvalid
	}

	claimed, err := s.events.TryClaim(ctx, &entity.ProcessedEvent{EventID: event.ID, EventType: event.Type})
	if err != nil {
		logger.Error().Err(err).Str("event_id", event.ID).Msg("Error claiming webhook event")
		return err
	}
	if !claimed {
		logger.Info().Str("event_id", event.ID).Msg("Webhook event already processed, skipping")
		return nil
	}

	handler, ok := s.handlers[event.Type]
	if !ok {
		logger.Warn().Str("event_type", event.Type).Str("event_id", event.ID).Msg("No handler for event type")
		return nil
	}

	return handler.Handle(ctx, event.PaymentIntentID, event.Created)
}
