package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusOnHold     OrderStatus = "on-hold"
	StatusCompleted  OrderStatus = "completed"
	StatusFailed     OrderStatus = "failed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// PaymentMethodSokin is the payment method id the host stores on orders paid through Sokin.
const PaymentMethodSokin = "sokinpay_gateway"

// ParseStatus accepts host status names with or without the "wc-" prefix.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "wc-"))
	switch st {
	case StatusPending, StatusProcessing, StatusOnHold, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal reports whether the host has closed the order. Reconciliation never moves it.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

type Buyer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	PostCode string `json:"post_code"`
	Country  string `json:"country"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// RemoteRef links an order to its Sokin session. Set once, never overwritten.
type RemoteRef struct {
	OrderID     string
	CorporateID string
}

func (r RemoteRef) IsZero() bool { return r.OrderID == "" && r.CorporateID == "" }

type Order struct {
	ID            string
	CustomerID    string
	// Key is the host's order key. Anonymous visitors prove possession of the order with it.
	Key           string
	PaymentMethod string
	Status        OrderStatus
	Total         decimal.Decimal
	Currency      string
	Buyer         Buyer
	Billing       Address
	Shipping      *Address
	Remote        RemoteRef
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o Order) IsGuest() bool { return o.CustomerID == "" }

// ReadyForCheckout checks what a remote session needs: currency, total and billing contact.
func (o Order) ReadyForCheckout() error {
	var missing []string
	if len(strings.TrimSpace(o.Currency)) != 3 {
		missing = append(missing, "currency")
	}
	if !o.Total.IsPositive() {
		missing = append(missing, "total")
	}
	if strings.TrimSpace(o.Buyer.Email) == "" {
		missing = append(missing, "billing email")
	}
	if strings.TrimSpace(o.Buyer.FirstName) == "" && strings.TrimSpace(o.Buyer.LastName) == "" {
		missing = append(missing, "billing name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncompleteOrder, strings.Join(missing, ", "))
	}
	return nil
}
