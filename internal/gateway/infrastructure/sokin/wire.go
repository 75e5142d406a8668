package sokin

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexString decodes a JSON string or number. Sokin is not consistent about ids.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexInt decodes a JSON number or numeric string. Anything else is zero.
type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		*i = 0
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*i = 0
		return nil
	}
	*i = flexInt(f)
	return nil
}

// envelope is the error shape shared by every endpoint.
type envelope struct {
	Success *bool      `json:"success"`
	Status  *flexInt   `json:"status"`
	Message flexString `json:"message"`
}

func (e envelope) rejected() bool {
	return e.Success != nil && !*e.Success && e.Status != nil && *e.Status == 400
}

type createOrderResponse struct {
	CorporateID flexString `json:"corporateId"`
	OrderID     flexString `json:"orderId"`
}

type fetchOrderResponse struct {
	Data struct {
		Order struct {
			OrderID     flexString `json:"orderId"`
			OrderStatus flexString `json:"orderStatus"`
			Payments    []struct {
				PaymentID flexString `json:"paymentId"`
				Status    flexString `json:"status"`
			} `json:"payments"`
		} `json:"order"`
	} `json:"data"`
}
