package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

// RefundCoordinator pushes host refunds to Sokin. Unlike reconciliation,
// every failure here is returned to the caller.
type RefundCoordinator struct {
	log    *slog.Logger
	repo   OrderRepository
	client PaymentClient
	now    func() time.Time
}

func NewRefundCoordinator(log *slog.Logger, repo OrderRepository, client PaymentClient) *RefundCoordinator {
	return &RefundCoordinator{log: log, repo: repo, client: client, now: time.Now}
}

// CreateRefund refunds amount against the first payment of the order's Sokin session.
func (c *RefundCoordinator) CreateRefund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (domain.Refund, error) {
	if !amount.IsPositive() {
		return domain.Refund{}, domain.ErrInvalidAmount
	}
	o, err := c.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Refund{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o.Remote.OrderID == "" {
		return domain.Refund{}, fmt.Errorf("order %s: %w", o.ID, domain.ErrNoRemoteOrder)
	}

	session, err := c.client.FetchOrder(ctx, o.Remote.OrderID)
	if err != nil {
		return domain.Refund{}, fmt.Errorf("fetch remote order %s: %w", o.Remote.OrderID, err)
	}
	payment, ok := session.FirstPayment()
	if !ok {
		return domain.Refund{}, fmt.Errorf("order %s: %w", o.ID, domain.ErrNoPayments)
	}

	now := c.now().UTC()
	sub := domain.RefundSubmission{
		PaymentID:   payment.PaymentID,
		Currency:    o.Currency,
		Amount:      amount,
		Description: reason,
		ReferenceNo: domain.ReferenceNo(now),
	}
	receipt, err := c.client.CreateRefund(ctx, sub)
	if err != nil {
		return domain.Refund{}, fmt.Errorf("submit refund for %s: %w", o.ID, err)
	}

	refund := domain.Refund{
		ID:            uuid.New(),
		OrderID:       o.ID,
		RemoteOrderID: o.Remote.OrderID,
		PaymentID:     payment.PaymentID,
		Amount:        amount,
		Currency:      o.Currency,
		Reason:        reason,
		ReferenceNo:   sub.ReferenceNo,
		CreatedAt:     now,
	}
	ev := domain.RefundSubmitted{
		RefundID:    refund.ID.String(),
		OrderID:     o.ID,
		PaymentID:   payment.PaymentID,
		Amount:      amount.String(),
		Currency:    o.Currency,
		ReferenceNo: refund.ReferenceNo,
	}
	if err := c.repo.SaveRefund(ctx, refund, ev); err != nil {
		c.log.Error("refund accepted by sokin but not recorded", "order_id", o.ID, "payment_id", payment.PaymentID, "amount", amount.String(), "err", err)
		return refund, fmt.Errorf("%w: %v", domain.ErrRefundNotRecorded, err)
	}

	c.log.Info("refund submitted", "order_id", o.ID, "refund_id", refund.ID, "amount", amount.String(), "sokin_status", receipt.StatusCode)
	return refund, nil
}
