package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCountry(t *testing.T) {
	out, err := run(t, "country", "GB", "us")
	require.NoError(t, err)
	assert.Equal(t, "GB\t826\nus\t840\n", out)
}

func TestCountry_Unknown(t *testing.T) {
	out, err := run(t, "country", "GB", "ZZ")
	assert.EqualError(t, err, "1 unknown country code(s)")
	assert.Contains(t, out, "ZZ\t(omitted)")
}

func TestRefund_RejectsBadAmount(t *testing.T) {
	_, err := run(t, "refund", "1001", "--amount", "0")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = run(t, "refund", "1001", "--amount", "ten")
	assert.ErrorContains(t, err, "--amount")
}

func TestRefundMessage(t *testing.T) {
	ev := domain.RefundRequested{OrderID: "1001", Amount: decimal.RequireFromString("2.50"), Reason: "late"}
	value, err := json.Marshal(ev)
	require.NoError(t, err)

	msg := refundMessage(context.Background(), "order.refunds", "1001", value)
	assert.Equal(t, "order.refunds", msg.Topic)
	assert.Equal(t, "1001", string(msg.Key))
	assert.Equal(t, "RefundRequested", tracing.KafkaHeader(msg.Headers, "event_type"))

	var back domain.RefundRequested
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, "1001", back.OrderID)
	assert.True(t, ev.Amount.Equal(back.Amount))
}
