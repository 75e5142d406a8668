package application

import (
	"errors"
	"html"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "notice"
	NoticeError NoticeLevel = "error"
)

// Notice is a flash message for the customer. Message is already HTML-escaped.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

const (
	msgInitGeneric    = "Payment Error: Unable to initialize payment. Please try again."
	msgInitUnexpected = "Unexpected error while creating the payment."
	msgCancelled      = "You cancelled the payment. Please try again."
	msgDeclined       = "Your payment was declined. Please try again or choose a different payment method."
)

type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

type InitiateResult struct {
	Result   Result
	Redirect string
	Notice   *Notice
}

type Action string

const (
	// ActionNone leaves the order untouched for a later retry.
	ActionNone Action = "none"
	// ActionRejected is a failed ownership or id check. Callers must render it like ActionNone.
	ActionRejected  Action = "rejected"
	ActionCancelled Action = "cancelled"
	ActionDeclined  Action = "declined"
	ActionConfirmed Action = "confirmed"
)

type ReconcileResult struct {
	Action   Action
	Redirect string
	Notice   *Notice
}

// DisplayMessage returns the escaped Sokin message carried by err, if any.
func DisplayMessage(err error) (string, bool) {
	var be *domain.BusinessError
	if !errors.As(err, &be) {
		return "", false
	}
	return html.EscapeString(be.Message), true
}
