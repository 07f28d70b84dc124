package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/quote_response.json")
	require.NoError(t, err)
	return b
}

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: apiKey}, zap.NewNop())
}

func TestClient_GetQuote(t *testing.T) {
	fixture := loadFixture(t)

	var got QuoteRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quote/v2", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	}, "secret")

	res, err := client.GetQuote(context.Background(), &QuoteRequest{
		User:                "0x03508bb71268bba25ecacc8f620e01866650532c",
		OriginChainID:       8453,
		DestinationChainID:  42161,
		OriginCurrency:      "0x0000000000000000000000000000000000000000",
		DestinationCurrency: "0x0000000000000000000000000000000000000000",
		Amount:              "100000000000000000000",
		TradeType:           TradeTypeExactInput,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8453), got.OriginChainID)
	assert.Equal(t, "100000000000000000000", got.Amount)
	assert.Empty(t, got.Recipient)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, StepKindTransaction, res.Steps[0].Kind)
	assert.Equal(t, "0xtest", res.RequestIDOrStep())
	gas, ok := res.Fees.Gas.Formatted()
	require.True(t, ok)
	assert.InDelta(t, 0.001, gas, 1e-12)
}

func TestClient_OmitsAPIKeyWhenUnset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"steps":[]}`))
	}, "")

	res, err := client.GetQuote(context.Background(), &QuoteRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Steps)
}

func TestClient_GetQuoteAPIError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	}, "")

	_, err := client.GetQuote(context.Background(), &QuoteRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "Relay quote failed 503: upstream down", err.Error())
	assert.Equal(t, 1, calls, "quote requests must not be retried")
}

func TestClient_GetStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/intents/status/v3", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("requestId"))
		_, _ = w.Write([]byte(`{"status":"success","inTxHashes":["0x1"],"txHashes":["0x2"],"updatedAt":1700000000,"extra":"kept"}`))
	}, "")

	status, err := client.GetStatus(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status.Status)
	assert.True(t, status.Status.IsTerminal())
	assert.Equal(t, []string{"0x2"}, status.TxHashes)

	out, err := json.Marshal(status)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"extra":"kept"`)
}

func TestClient_GetStatusNotFoundIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}, "")

	_, err := client.GetStatus(context.Background(), "missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, 1, calls)
}

func TestClient_StatusURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://api.relay.link/"}, nil)
	assert.Equal(t, "https://api.relay.link", client.BaseURL())
	assert.Equal(t, "https://api.relay.link/intents/status/v3?requestId=0xabc", client.StatusURL("0xabc"))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.True(t, StatusFailure.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
}
