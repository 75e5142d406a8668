package host

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

// EventQueue persists an event for the host to pick up from the outbox.
type EventQueue interface {
	Enqueue(ctx context.Context, orderID string, ev domain.Event) error
}

// Requests asks the host to reduce stock and clear the cart by publishing
// events. Failures are logged and never reach the checkout.
type Requests struct {
	log   *slog.Logger
	queue EventQueue
}

func NewRequests(log *slog.Logger, queue EventQueue) *Requests {
	return &Requests{log: log, queue: queue}
}

func (h *Requests) ReduceStock(ctx context.Context, o domain.Order) {
	h.send(ctx, o.ID, domain.StockReductionRequested{OrderID: o.ID})
}

func (h *Requests) EmptyCart(ctx context.Context, o domain.Order) {
	h.send(ctx, o.ID, domain.CartClearRequested{OrderID: o.ID, CustomerID: o.CustomerID})
}

func (h *Requests) send(ctx context.Context, orderID string, ev domain.Event) {
	if err := h.queue.Enqueue(ctx, orderID, ev); err != nil {
		h.log.Error("host request not queued", "order_id", orderID, "event", ev.EventType(), "err", err)
	}
}
