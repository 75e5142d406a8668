package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrIncompleteOrder     = errors.New("order incomplete for checkout")
	ErrRemoteRefAlreadySet = errors.New("remote order reference already set")
	ErrNoRemoteOrder       = errors.New("order has no remote order id")
	ErrNoPayments          = errors.New("remote order has no payments to refund")
	ErrInvalidAmount       = errors.New("refund amount must be positive")
	ErrRefundNotRecorded   = errors.New("refund submitted but not recorded")
)

// BusinessError is a well-formed Sokin rejection: success=false with status 400.
type BusinessError struct {
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("sokin rejected request (status %d): %s", e.Status, e.Message)
}

// TransportError covers everything else: unreachable API, unexpected status, malformed body.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sokin %s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sokin %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
