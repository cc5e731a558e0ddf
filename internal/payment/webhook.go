package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types Stripe emits for payment intent lifecycle changes.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// ErrSignatureInvalid covers every verification failure: malformed header,
// stale timestamp, or signature mismatch. Callers must not distinguish
// between these causes in responses.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// signatureTolerance bounds how old a signed timestamp may be; anything
// older is indistinguishable from a replayed capture.
const signatureTolerance = 5 * time.Minute

// Event is a verified provider notification. PaymentIntentID is the only
// reference it carries to local state; the payload never names an order id.
type Event struct {
	ID              string
	Type            string
	Created         time.Time
	PaymentIntentID string
}

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	} `json:"data"`
}

// VerifyAndParse checks the Stripe-Signature header against the exact raw
// request body and, only on success, decodes the event. The payload must be
// the unmodified byte sequence received on the wire: the scheme signs
// "<timestamp>.<raw body>" and any re-serialization breaks it.
func (c *Client) VerifyAndParse(payload []byte, sigHeader string) (*Event, error) {
	return verifyAndParse(payload, sigHeader, c.webhookSecret, time.Now())
}

func verifyAndParse(payload []byte, sigHeader string, secret string, now time.Time) (*Event, error) {
	if len(payload) == 0 || sigHeader == "" {
		return nil, ErrSignatureInvalid
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, ErrSignatureInvalid
	}
	if now.Sub(timestamp) > signatureTolerance {
		return nil, ErrSignatureInvalid
	}

	expected := computeSignature(timestamp, payload, secret)
	matched := false
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			matched = true
		}
	}
	if !matched {
		return nil, ErrSignatureInvalid
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if envelope.ID == "" || envelope.Type == "" || envelope.Data.Object.ID == "" {
		return nil, fmt.Errorf("webhook payload missing required fields")
	}

	return &Event{
		ID:              envelope.ID,
		Type:            envelope.Type,
		Created:         time.Unix(envelope.Created, 0).UTC(),
		PaymentIntentID: envelope.Data.Object.ID,
	}, nil
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]". Multiple v1
// entries appear while the endpoint secret is being rotated.
func parseSignatureHeader(header string) (time.Time, [][]byte, error) {
	var timestamp time.Time
	var signatures [][]byte

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			unix, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return time.Time{}, nil, err
			}
			timestamp = time.Unix(unix, 0)
		case "v1":
			sig, err := hex.DecodeString(kv[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}

	if timestamp.IsZero() || len(signatures) == 0 {
		return time.Time{}, nil, fmt.Errorf("malformed signature header")
	}
	return timestamp, signatures, nil
}

func computeSignature(timestamp time.Time, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}
