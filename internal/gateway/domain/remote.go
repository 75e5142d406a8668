package domain

import "github.com/shopspring/decimal"

// RemoteAddress is the address shape Sokin expects. Country is the ISO numeric code.
type RemoteAddress struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	PostCode string `json:"post_code"`
	Country  string `json:"country,omitempty"`
}

// Equal is normalized address equality: an absent field is "", the same as an empty one.
func (a RemoteAddress) Equal(b RemoteAddress) bool { return a == b }

func (a RemoteAddress) IsZero() bool { return a == RemoteAddress{} }

type Recurring struct {
	Frequency          string          `json:"frequency"`
	PaymentCount       int             `json:"paymentCount"`
	FirstPaymentDate   string          `json:"firstPaymentDate"`
	FirstPaymentAmount decimal.Decimal `json:"firstPaymentAmount"`
}

// SessionRequest is the POST /orders body.
type SessionRequest struct {
	Type            string          `json:"type"`
	Currency        string          `json:"currency"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Description     string          `json:"description"`
	RedirectURL     string          `json:"redirectURL"`
	ReferenceNo     string          `json:"referenceNo"`
	Memo            string          `json:"memo"`
	Recurring       Recurring       `json:"recurring"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	Email           string          `json:"email"`
	BillingAddress  RemoteAddress   `json:"billing_address"`
	ShippingAddress *RemoteAddress  `json:"shipping_address,omitempty"`
	SaveCard        bool            `json:"save_card"`
	PaymentMethod   []string        `json:"payment_method"`
	IsExternal      bool            `json:"isExternal"`
}

type SessionCreated struct {
	CorporateID string
	OrderID     string
}

// RefundSubmission is the POST /refunds body.
type RefundSubmission struct {
	PaymentID   string          `json:"paymentId"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ReferenceNo string          `json:"referenceNo"`
	Memo        string          `json:"memo"`
}

type RefundReceipt struct {
	StatusCode int
}
