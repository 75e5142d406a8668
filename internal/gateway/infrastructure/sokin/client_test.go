package sokin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/logging"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(logging.Discard(), srv.URL+"/", "secret-key", 2*time.Second)
}

func TestCreateOrder(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"corporateId":"C1","orderId":"O1"}`))
	})

	created, err := c.CreateOrder(t.Context(), domain.SessionRequest{
		Type:        "SINGLE",
		Currency:    "GBP",
		TotalAmount: decimal.RequireFromString("49.99"),
		BillingAddress: domain.RemoteAddress{
			Line1:   "1 High St",
			Country: "826",
		},
		PaymentMethod: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCreated{CorporateID: "C1", OrderID: "O1"}, created)
	assert.Equal(t, "SINGLE", got["type"])
	assert.Equal(t, "826", got["billing_address"].(map[string]any)["country"])
}

func TestCreateOrder_NumericIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"corporateId":17,"orderId":90210}`))
	})

	created, err := c.CreateOrder(t.Context(), domain.SessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "17", created.CorporateID)
	assert.Equal(t, "90210", created.OrderID)
}

func TestCreateOrder_BusinessError(t *testing.T) {
	tests := map[string]string{
		"numeric status": `{"success":false,"status":400,"message":"Invalid currency"}`,
		"string status":  `{"success":false,"status":"400","message":"Invalid currency"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(body))
			})

			_, err := c.CreateOrder(t.Context(), domain.SessionRequest{})
			var be *domain.BusinessError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, 400, be.Status)
			assert.Equal(t, "Invalid currency", be.Message)
		})
	}
}

func TestCreateOrder_TransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"success":false,"status":500,"message":"boom"}`},
		{name: "malformed", status: http.StatusOK, body: `<html>`},
		{name: "missing ids", status: http.StatusOK, body: `{"corporateId":"C1"}`},
		{name: "success false with other status", status: http.StatusOK, body: `{"success":false,"status":401,"message":"no"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateOrder(t.Context(), domain.SessionRequest{})
			var te *domain.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "create_order", te.Op)
			assert.Equal(t, tt.status, te.StatusCode)
		})
	}
}

func TestCreateOrder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(logging.Discard(), url, "k", time.Second)
	_, err := c.CreateOrder(t.Context(), domain.SessionRequest{})
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
}

func TestFetchOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/O1", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"data":{"order":{"orderId":"O1","orderStatus":"PROCESSED","payments":[
			{"paymentId":"P1","status":"Declined"},
			{"paymentId":2,"status":"SUCCESS"}]}}}`))
	})

	session, err := c.FetchOrder(t.Context(), "O1")
	require.NoError(t, err)
	assert.Equal(t, "O1", session.OrderID)
	assert.Equal(t, domain.RemoteProcessed, session.OrderStatus)
	require.Len(t, session.Payments, 2)
	assert.Equal(t, "2", session.Payments[1].PaymentID)
	assert.Equal(t, domain.VerdictDeclined, session.Verdict())
}

func TestFetchOrder_NoPayments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"order":{"orderStatus":"PENDING","payments":[]}}}`))
	})

	session, err := c.FetchOrder(t.Context(), "O7")
	require.NoError(t, err)
	assert.Equal(t, "O7", session.OrderID)
	assert.Empty(t, session.Payments)
	assert.Equal(t, domain.VerdictUndecided, session.Verdict())
}

func TestFetchOrder_PaymentWithoutStatus(t *testing.T) {
	for name, payment := range map[string]string{
		"null":    `{"paymentId":"P1","status":null}`,
		"missing": `{"paymentId":"P1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"order":{"orderId":"O1","orderStatus":"PENDING","payments":[` + payment + `]}}}`))
			})

			session, err := c.FetchOrder(t.Context(), "O1")
			require.NoError(t, err)
			require.Len(t, session.Payments, 1)
			assert.Empty(t, session.Payments[0].Status)
			assert.Equal(t, domain.VerdictUndecided, session.Verdict())
		})
	}
}

func TestCreateRefund(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refunds", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	})

	receipt, err := c.CreateRefund(t.Context(), domain.RefundSubmission{
		PaymentID:   "P1",
		Currency:    "GBP",
		Amount:      decimal.RequireFromString("10.50"),
		Description: "damaged",
		ReferenceNo: "2026101507",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, receipt.StatusCode)
	assert.Equal(t, "P1", got["paymentId"])
	assert.Equal(t, "", got["memo"])
	assert.Equal(t, "2026101507", got["referenceNo"])
}

func TestCreateRefund_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status":400,"message":"Partial refunds are not allowed on the day of payment"}`))
	})

	_, err := c.CreateRefund(t.Context(), domain.RefundSubmission{PaymentID: "P1"})
	var be *domain.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Message, "Partial refunds")
}

func TestFlexInt(t *testing.T) {
	tests := map[string]flexInt{
		`400`:   400,
		`"400"`: 400,
		`400.0`: 400,
		`null`:  0,
		`"bad"`: 0,
		`true`:  0,
	}
	for in, want := range tests {
		var got flexInt
		require.NoError(t, json.Unmarshal([]byte(in), &got), in)
		assert.Equal(t, want, got, in)
	}
}
