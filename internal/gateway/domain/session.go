package domain

import "strings"

// RemoteOrderStatus is Sokin's free-form order lifecycle string.
type RemoteOrderStatus string

const (
	RemotePending    RemoteOrderStatus = "PENDING"
	RemoteInProgress RemoteOrderStatus = "IN-PROGRESS"
	RemoteProcessed  RemoteOrderStatus = "PROCESSED"
)

// Accepted reports whether Sokin has taken the order far enough to start fulfilment.
func (s RemoteOrderStatus) Accepted() bool {
	switch s {
	case RemotePending, RemoteInProgress, RemoteProcessed:
		return true
	}
	return false
}

type RemotePayment struct {
	PaymentID string
	Status    string
}

func (p RemotePayment) Declined() bool {
	return strings.EqualFold(strings.TrimSpace(p.Status), "declined")
}

type RemoteSession struct {
	OrderID     string
	OrderStatus RemoteOrderStatus
	Payments    []RemotePayment
}

// FirstPayment returns the first attempt. It is the only one consulted,
// even after a decline-and-retry produced later attempts.
func (s RemoteSession) FirstPayment() (RemotePayment, bool) {
	if len(s.Payments) == 0 {
		return RemotePayment{}, false
	}
	return s.Payments[0], true
}

type Verdict int

const (
	VerdictUndecided Verdict = iota
	VerdictDeclined
	VerdictAccepted
)

func (v Verdict) String() string {
	switch v {
	case VerdictDeclined:
		return "declined"
	case VerdictAccepted:
		return "accepted"
	default:
		return "undecided"
	}
}

// Verdict decides what the session means for the local order.
// No payments yet, a payment without a status, or an unknown order status is undecided.
func (s RemoteSession) Verdict() Verdict {
	p, ok := s.FirstPayment()
	if !ok || strings.TrimSpace(p.Status) == "" {
		return VerdictUndecided
	}
	if p.Declined() {
		return VerdictDeclined
	}
	if s.OrderStatus.Accepted() {
		return VerdictAccepted
	}
	return VerdictUndecided
}
