package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/payment"
)

const testWebhookSecret = "whsec_service_test"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			total_amount INTEGER NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			payment_intent_id TEXT NOT NULL UNIQUE,
			paid_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE order_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			product_id INTEGER NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price INTEGER NOT NULL
		)`,
		`CREATE TABLE webhook_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			processed_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

// stubProducts serves FindByIDs from an in-memory catalog.
type stubProducts struct {
	catalog map[int64]*entity.Product
}

func (s *stubProducts) FindByIDs(_ context.Context, ids []int64) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, id := range ids {
		if p, ok := s.catalog[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// capturePublisher records every Kafka message instead of writing it.
type capturePublisher struct {
	messages []kafka.Message
}

func (p *capturePublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *capturePublisher) keys() []string {
	var keys []string
	for _, msg := range p.messages {
		keys = append(keys, string(msg.Key))
	}
	return keys
}

// newTestGateway points a payment client at a local stub gateway.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *payment.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return payment.NewClient(srv.URL, "sk_test_123", testWebhookSecret, 5*time.Second)
}

// intentStub answers intent creation and cancellation the way the gateway
// does on the happy path.
func intentStub(intentID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/payment_intents" {
			fmt.Fprintf(w, `{"id":%q,"client_secret":"%s_secret_abc"}`, intentID, intentID)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"status":"canceled"}`, intentID)
	}
}

// signedEvent builds a raw webhook payload and a matching signature header.
func signedEvent(eventID, eventType, paymentIntentID string, occurredAt time.Time) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{"id":%q,"type":%q,"created":%d,"data":{"object":{"id":%q}}}`,
		eventID, eventType, occurredAt.Unix(), paymentIntentID))

	ts := time.Now()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	header := fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))

	return payload, header
}
