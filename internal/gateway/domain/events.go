package domain

import "github.com/shopspring/decimal"

const AggregateOrder = "order"

const (
	EventStockReductionRequested = "StockReductionRequested"
	EventCartClearRequested      = "CartClearRequested"
	EventPaymentCompleted        = "PaymentCompleted"
	EventPaymentFailed           = "PaymentFailed"
	EventPaymentCancelled        = "PaymentCancelled"
	EventRefundSubmitted         = "RefundSubmitted"
)

// Event is a fact published to the host through the outbox.
type Event interface {
	EventType() string
}

type StockReductionRequested struct {
	OrderID string
}

func (StockReductionRequested) EventType() string { return EventStockReductionRequested }

type CartClearRequested struct {
	OrderID    string
	CustomerID string
}

func (CartClearRequested) EventType() string { return EventCartClearRequested }

type PaymentCompleted struct {
	OrderID       string
	RemoteOrderID string
	PaymentID     string
	RemoteStatus  string
}

func (PaymentCompleted) EventType() string { return EventPaymentCompleted }

type PaymentFailed struct {
	OrderID       string
	RemoteOrderID string
	PaymentID     string
	Reason        string
}

func (PaymentFailed) EventType() string { return EventPaymentFailed }

type PaymentCancelled struct {
	OrderID string
}

func (PaymentCancelled) EventType() string { return EventPaymentCancelled }

type RefundSubmitted struct {
	RefundID    string
	OrderID     string
	PaymentID   string
	Amount      string
	Currency    string
	ReferenceNo string
}

func (RefundSubmitted) EventType() string { return EventRefundSubmitted }

// RefundRequested is consumed from the host when it refunds an order.
type RefundRequested struct {
	OrderID string
	Amount  decimal.Decimal
	Reason  string
}
