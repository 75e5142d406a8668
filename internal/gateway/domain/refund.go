package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Refund struct {
	ID            uuid.UUID
	OrderID       string
	RemoteOrderID string
	PaymentID     string
	Amount        decimal.Decimal
	Currency      string
	Reason        string
	ReferenceNo   string
	CreatedAt     time.Time
}

// ReferenceNo renders the Sokin reference: UTC date followed by the two-digit second.
func ReferenceNo(t time.Time) string {
	return t.UTC().Format("2006010205")
}
