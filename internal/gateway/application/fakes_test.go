package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/logging"
)

type memRepo struct {
	orders  map[string]domain.Order
	notes   map[string][]string
	events  []domain.Event
	refunds []domain.Refund

	attachErr     error
	saveRefundErr error
}

func newMemRepo(orders ...domain.Order) *memRepo {
	r := &memRepo{orders: map[string]domain.Order{}, notes: map[string][]string{}}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *memRepo) Get(_ context.Context, id string) (domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *memRepo) Transition(_ context.Context, id string, to domain.OrderStatus, note string, ev domain.Event) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = to
	r.orders[id] = o
	if note != "" {
		r.notes[id] = append(r.notes[id], note)
	}
	if ev != nil {
		r.events = append(r.events, ev)
	}
	return nil
}

func (r *memRepo) AttachRemote(_ context.Context, id string, ref domain.RemoteRef) error {
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if r.attachErr != nil {
		return r.attachErr
	}
	if o.PaidAt != nil {
		return domain.ErrRemoteRefAlreadySet
	}
	o.Remote = ref
	r.orders[id] = o
	return nil
}

func (r *memRepo) CompletePayment(_ context.Context, id string, ev domain.PaymentCompleted) (bool, error) {
	o, ok := r.orders[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	o.Status = domain.StatusProcessing
	first := o.PaidAt == nil
	if first {
		now := time.Now()
		o.PaidAt = &now
		r.events = append(r.events, ev)
	}
	r.orders[id] = o
	return first, nil
}

func (r *memRepo) SaveRefund(_ context.Context, rf domain.Refund, ev domain.RefundSubmitted) error {
	if r.saveRefundErr != nil {
		return r.saveRefundErr
	}
	r.refunds = append(r.refunds, rf)
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) eventTypes() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType())
	}
	return out
}

type fakeClient struct {
	created    domain.SessionCreated
	createErr  error
	createReqs []domain.SessionRequest

	session  domain.RemoteSession
	fetchErr error
	fetched  []string

	refundErr error
	refunds   []domain.RefundSubmission
}

func (c *fakeClient) CreateOrder(_ context.Context, req domain.SessionRequest) (domain.SessionCreated, error) {
	c.createReqs = append(c.createReqs, req)
	if c.createErr != nil {
		return domain.SessionCreated{}, c.createErr
	}
	return c.created, nil
}

func (c *fakeClient) FetchOrder(_ context.Context, id string) (domain.RemoteSession, error) {
	c.fetched = append(c.fetched, id)
	if c.fetchErr != nil {
		return domain.RemoteSession{}, c.fetchErr
	}
	return c.session, nil
}

func (c *fakeClient) CreateRefund(_ context.Context, sub domain.RefundSubmission) (domain.RefundReceipt, error) {
	c.refunds = append(c.refunds, sub)
	if c.refundErr != nil {
		return domain.RefundReceipt{}, c.refundErr
	}
	return domain.RefundReceipt{StatusCode: 200}, nil
}

type fakeHost struct {
	stockReduced []string
	cartsEmptied []string
}

func (h *fakeHost) ReduceStock(_ context.Context, o domain.Order) {
	h.stockReduced = append(h.stockReduced, o.ID)
}

func (h *fakeHost) EmptyCart(_ context.Context, o domain.Order) {
	h.cartsEmptied = append(h.cartsEmptied, o.ID)
}

type fakeAuditor struct {
	events []AuditEvent
}

func (a *fakeAuditor) Warn(_ context.Context, ev AuditEvent) {
	a.events = append(a.events, ev)
}

var testSettings = Settings{
	PaymentMethod:    domain.PaymentMethodSokin,
	CheckoutURL:      "https://pay.sokin.test/checkout/",
	CheckoutStatus:   domain.StatusProcessing,
	OrderPayURL:      "https://shop.test/checkout/order-pay/{order_id}",
	OrderReceivedURL: "https://shop.test/checkout/order-received/{order_id}",
}

var fixedNow = time.Date(2026, 10, 15, 9, 41, 7, 0, time.UTC)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:            "1001",
		CustomerID:    "42",
		Key:           "wc_order_7Qx2",
		PaymentMethod: domain.PaymentMethodSokin,
		Status:        domain.StatusPending,
		Total:         decimal.RequireFromString("49.99"),
		Currency:      "GBP",
		Buyer:         domain.Buyer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		Billing: domain.Address{
			Line1:    "12 Analytical Row",
			City:     "London",
			PostCode: "N1 9GU",
			Country:  "GB",
		},
		CreatedAt: time.Date(2026, 10, 14, 22, 5, 0, 0, time.UTC),
	}
}

type harness struct {
	repo   *memRepo
	client *fakeClient
	host   *fakeHost
	audit  *fakeAuditor
	rec    *Reconciler
	refund *RefundCoordinator
}

func newHarness(t *testing.T, orders ...domain.Order) *harness {
	t.Helper()
	h := &harness{
		repo:   newMemRepo(orders...),
		client: &fakeClient{},
		host:   &fakeHost{},
		audit:  &fakeAuditor{},
	}
	log := logging.Discard()
	h.rec = NewReconciler(log, h.repo, h.client, h.host, h.audit, testSettings)
	h.rec.now = func() time.Time { return fixedNow }
	h.refund = NewRefundCoordinator(log, h.repo, h.client)
	h.refund.now = func() time.Time { return fixedNow }
	return h
}

func (h *harness) order(t *testing.T, id string) domain.Order {
	t.Helper()
	o, err := h.repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get order %s: %v", id, err)
	}
	return o
}
