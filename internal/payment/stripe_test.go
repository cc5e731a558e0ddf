package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent(t *testing.T) {
	var gotPath, gotAuth, gotAmount, gotCurrency, gotMetadata string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAmount = r.PostForm.Get("amount")
		gotCurrency = r.PostForm.Get("currency")
		gotMetadata = r.PostForm.Get("metadata[user_id]")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret_abc"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", "whsec_x", 5*time.Second)
	intent, err := client.CreateIntent(context.Background(), 1000, "usd", map[string]string{"user_id": "42"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/payment_intents", gotPath)
	assert.Equal(t, "Bearer sk_test_key", gotAuth)
	assert.Equal(t, "1000", gotAmount)
	assert.Equal(t, "usd", gotCurrency)
	assert.Equal(t, "42", gotMetadata)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
}

func TestCreateIntent_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"card declined"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", "whsec_x", 5*time.Second)
	_, err := client.CreateIntent(context.Background(), 1000, "usd", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}

func TestCreateIntent_IncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pi_123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", "whsec_x", 5*time.Second)
	_, err := client.CreateIntent(context.Background(), 1000, "usd", nil)
	assert.Error(t, err)
}

func TestCancelIntent(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"pi_123","status":"canceled"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", "whsec_x", 5*time.Second)
	require.NoError(t, client.CancelIntent(context.Background(), "pi_123"))
	assert.Equal(t, "/v1/payment_intents/pi_123/cancel", gotPath)
}

func TestCancelIntent_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"message":"intent already succeeded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key", "whsec_x", 5*time.Second)
	assert.Error(t, client.CancelIntent(context.Background(), "pi_123"))
}
