package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testShortCode = "174379"
	testPassKey   = "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919"
)

type fakeDaraja struct {
	tokenCalls int32
	lastPush   map[string]interface{}
	lastQuery  map[string]interface{}
	pushStatus int
	pushBody   string
}

func (f *fakeDaraja) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
		_, _ = io.WriteString(w, `{"access_token":"tok-1","expires_in":"3599"}`)
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPush))
		if f.pushStatus != 0 {
			w.WriteHeader(f.pushStatus)
			_, _ = io.WriteString(w, f.pushBody)
			return
		}
		_, _ = io.WriteString(w, `{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success"}`)
	})
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastQuery))
		_, _ = io.WriteString(w, `{"ResponseCode":"0","ResponseDescription":"processed","MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":"1032","ResultDesc":"Request cancelled by user"}`)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeDaraja) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:        srv.URL + "/",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      testShortCode,
		PassKey:        testPassKey,
		CallbackURL:    "https://example.com/api/mpesa/callback/",
		Timeout:        5 * time.Second,
	})
	c.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC) }
	return c
}

func TestTimestampAndPassword(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 1, 9, 30, 15, 0, time.UTC))
	assert.Equal(t, "20240301123015", ts)

	pw := Password(testShortCode, testPassKey, ts)
	assert.Equal(t, Password(testShortCode, testPassKey, ts), pw)
	assert.NotContains(t, pw, testPassKey)
}

func TestSTKPush(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)

	res, err := c.STKPush(context.Background(), &STKPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           decimal.RequireFromString("1499.50"),
		AccountReference: "INV123",
		Description:      "Subscription Payment",
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)

	assert.Equal(t, testShortCode, f.lastPush["BusinessShortCode"])
	assert.Equal(t, "20240301123015", f.lastPush["Timestamp"])
	assert.Equal(t, Password(testShortCode, testPassKey, "20240301123015"), f.lastPush["Password"])
	assert.Equal(t, "CustomerPayBillOnline", f.lastPush["TransactionType"])
	assert.Equal(t, float64(1500), f.lastPush["Amount"])
	assert.Equal(t, "254712345678", f.lastPush["PartyA"])
	assert.Equal(t, testShortCode, f.lastPush["PartyB"])
	assert.Equal(t, "INV123", f.lastPush["AccountReference"])
	assert.Equal(t, "https://example.com/api/mpesa/callback/", f.lastPush["CallBackURL"])

	_, err = c.QuerySTKStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls), "token must be reused until expiry")
}

func TestSTKPushAPIError(t *testing.T) {
	f := &fakeDaraja{
		pushStatus: http.StatusBadRequest,
		pushBody:   `{"requestId":"r-1","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid Amount"}`,
	}
	c := newTestClient(t, f)

	_, err := c.STKPush(context.Background(), &STKPushRequest{PhoneNumber: "254712345678", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "400.002.02", apiErr.Code)
	assert.True(t, strings.Contains(err.Error(), "Invalid Amount"))
}

func TestQuerySTKStatus(t *testing.T) {
	f := &fakeDaraja{}
	c := newTestClient(t, f)

	res, err := c.QuerySTKStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "1032", res.ResultCode)
	assert.Equal(t, "ws_CO_1", f.lastQuery["CheckoutRequestID"])
}

func TestWholeShillings(t *testing.T) {
	assert.Equal(t, int64(100), WholeShillings(decimal.RequireFromString("100.00")))
	assert.Equal(t, int64(101), WholeShillings(decimal.RequireFromString("100.01")))
}
