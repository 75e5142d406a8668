package application

import (
	"context"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

type OrderRepository interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	// Transition sets the order status, appends note when non-empty and
	// enqueues ev when non-nil, all in one transaction.
	Transition(ctx context.Context, id string, to domain.OrderStatus, note string, ev domain.Event) error
	// AttachRemote stores the Sokin reference, replacing an earlier one while
	// the order is unpaid. ErrRemoteRefAlreadySet once the order is paid.
	AttachRemote(ctx context.Context, id string, ref domain.RemoteRef) error
	// CompletePayment moves the order to processing and stamps it paid. The
	// event is enqueued only on the first call; later calls report false.
	CompletePayment(ctx context.Context, id string, ev domain.PaymentCompleted) (bool, error)
	SaveRefund(ctx context.Context, r domain.Refund, ev domain.RefundSubmitted) error
}

type PaymentClient interface {
	CreateOrder(ctx context.Context, req domain.SessionRequest) (domain.SessionCreated, error)
	FetchOrder(ctx context.Context, remoteOrderID string) (domain.RemoteSession, error)
	CreateRefund(ctx context.Context, sub domain.RefundSubmission) (domain.RefundReceipt, error)
}

// Host is the order-management system's stock and cart surface. Fire-and-forget.
type Host interface {
	ReduceStock(ctx context.Context, o domain.Order)
	EmptyCart(ctx context.Context, o domain.Order)
}

type AuditEvent struct {
	Message               string
	OrderID               string
	CurrentCustomerID     string
	OrderCustomerID       string
	StoredRemoteOrderID   string
	CallbackRemoteOrderID string
}

type Auditor interface {
	Warn(ctx context.Context, ev AuditEvent)
}
