package application

import (
	"time"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/isocountry"
)

func buildSessionRequest(o domain.Order, redirectURL string, now time.Time) domain.SessionRequest {
	billing := remoteAddress(o.Billing)
	return domain.SessionRequest{
		Type:        "SINGLE",
		Currency:    o.Currency,
		TotalAmount: o.Total,
		RedirectURL: redirectURL,
		ReferenceNo: domain.ReferenceNo(now),
		Recurring: domain.Recurring{
			Frequency:          "ONCE",
			PaymentCount:       1,
			FirstPaymentDate:   o.CreatedAt.UTC().Format(time.DateOnly),
			FirstPaymentAmount: o.Total,
		},
		FirstName:       o.Buyer.FirstName,
		LastName:        o.Buyer.LastName,
		Email:           o.Buyer.Email,
		BillingAddress:  billing,
		ShippingAddress: shippingAddress(o.Shipping, billing),
		SaveCard:        true,
		PaymentMethod:   []string{},
		IsExternal:      true,
	}
}

func remoteAddress(a domain.Address) domain.RemoteAddress {
	country, _ := isocountry.Numeric(a.Country)
	return domain.RemoteAddress{
		Line1:    a.Line1,
		Line2:    a.Line2,
		City:     a.City,
		State:    a.State,
		PostCode: a.PostCode,
		Country:  country,
	}
}

// shippingAddress returns nil unless the order ships somewhere other than the billing address.
func shippingAddress(shipping *domain.Address, billing domain.RemoteAddress) *domain.RemoteAddress {
	if shipping == nil || shipping.IsZero() {
		return nil
	}
	ship := remoteAddress(*shipping)
	if ship.IsZero() || ship.Equal(billing) {
		return nil
	}
	return &ship
}
