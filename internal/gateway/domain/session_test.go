package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name    string
		session RemoteSession
		want    Verdict
	}{
		{"no payments", RemoteSession{OrderStatus: RemotePending}, VerdictUndecided},
		{"declined mixed case", RemoteSession{OrderStatus: RemoteProcessed, Payments: []RemotePayment{{Status: "Declined"}}}, VerdictDeclined},
		{"processed", RemoteSession{OrderStatus: RemoteProcessed, Payments: []RemotePayment{{Status: "captured"}}}, VerdictAccepted},
		{"in progress", RemoteSession{OrderStatus: RemoteInProgress, Payments: []RemotePayment{{Status: "authorised"}}}, VerdictAccepted},
		{"pending", RemoteSession{OrderStatus: RemotePending, Payments: []RemotePayment{{Status: "authorised"}}}, VerdictAccepted},
		{"payment without status", RemoteSession{OrderStatus: RemotePending, Payments: []RemotePayment{{PaymentID: "P1"}}}, VerdictUndecided},
		{"blank payment status", RemoteSession{OrderStatus: RemoteProcessed, Payments: []RemotePayment{{PaymentID: "P1", Status: "  "}}}, VerdictUndecided},
		{"unknown order status", RemoteSession{OrderStatus: "EXPIRED", Payments: []RemotePayment{{Status: "captured"}}}, VerdictUndecided},
		{"first attempt wins", RemoteSession{OrderStatus: RemoteProcessed, Payments: []RemotePayment{{Status: "declined"}, {Status: "captured"}}}, VerdictDeclined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Verdict())
		})
	}
}

func TestFirstPayment(t *testing.T) {
	_, ok := RemoteSession{}.FirstPayment()
	assert.False(t, ok)

	p, ok := RemoteSession{Payments: []RemotePayment{{PaymentID: "P1"}, {PaymentID: "P2"}}}.FirstPayment()
	assert.True(t, ok)
	assert.Equal(t, "P1", p.PaymentID)
}
