package application

import (
	"net/url"
	"strings"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

const (
	orderIDPlaceholder  = "{order_id}"
	orderKeyPlaceholder = "{order_key}"
)

type Settings struct {
	// PaymentMethod is the id reconciliation acts on; other orders are ignored.
	PaymentMethod string
	// CheckoutURL is the Sokin hosted pay page base; corporate and order ids are appended.
	CheckoutURL string
	// CheckoutStatus is forced onto the order before the session is created.
	// Empty keeps the order's current status.
	CheckoutStatus domain.OrderStatus
	// OrderPayURL and OrderReceivedURL are host page templates containing
	// {order_id} and optionally {order_key}.
	OrderPayURL      string
	OrderReceivedURL string
}

func (s Settings) paymentURL(o domain.Order) string {
	return expand(s.OrderPayURL, o)
}

func (s Settings) receivedURL(o domain.Order) string {
	return expand(s.OrderReceivedURL, o)
}

func (s Settings) sessionURL(created domain.SessionCreated) string {
	return strings.TrimSuffix(s.CheckoutURL, "/") + "/" + created.CorporateID + "/" + created.OrderID
}

func expand(tmpl string, o domain.Order) string {
	return strings.NewReplacer(
		orderIDPlaceholder, url.PathEscape(o.ID),
		orderKeyPlaceholder, url.QueryEscape(o.Key),
	).Replace(tmpl)
}
