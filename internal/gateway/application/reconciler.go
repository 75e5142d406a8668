package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

// CallbackReturn is the status Sokin sends when the customer leaves without paying.
const CallbackReturn = "return"

// Callback carries the untrusted query parameters of the return redirect.
// OrderKey is the host order key the return URL was built with.
type Callback struct {
	Status        string
	RemoteOrderID string
	OrderKey      string
}

// Caller identifies who triggered the callback. CustomerID is empty for anonymous visitors.
type Caller struct {
	CustomerID string
}

// mayAct reports whether the caller may move the order. A signed-in caller
// must own a customer order. An anonymous caller must present the order key;
// only guest orders stored without a key accept a keyless return.
func (c Caller) mayAct(o domain.Order, orderKey string) bool {
	if c.CustomerID != "" {
		return o.IsGuest() || c.CustomerID == o.CustomerID
	}
	if o.Key == "" {
		return o.IsGuest()
	}
	return subtle.ConstantTimeCompare([]byte(orderKey), []byte(o.Key)) == 1
}

// Reconciler drives an order through checkout and the return from Sokin.
// Callers must not run two reconciliations of one order concurrently.
type Reconciler struct {
	log      *slog.Logger
	repo     OrderRepository
	client   PaymentClient
	host     Host
	audit    Auditor
	settings Settings
	now      func() time.Time
}

func NewReconciler(log *slog.Logger, repo OrderRepository, client PaymentClient, host Host, audit Auditor, settings Settings) *Reconciler {
	return &Reconciler{
		log:      log,
		repo:     repo,
		client:   client,
		host:     host,
		audit:    audit,
		settings: settings,
		now:      time.Now,
	}
}

// Initiate opens a Sokin session for the order and returns where to send the customer.
//
// The checkout status, stock reduction and cart clear are applied before
// Sokin is called and are not undone when the call fails. Initiate is not
// idempotent: each call creates a new remote session, which replaces the
// stored one until the order is paid.
func (r *Reconciler) Initiate(ctx context.Context, orderID string) (InitiateResult, error) {
	o, err := r.repo.Get(ctx, orderID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	retry := r.settings.paymentURL(o)

	if o.PaidAt != nil {
		r.log.Warn("checkout refused for paid order", "order_id", o.ID, "remote_order_id", o.Remote.OrderID)
		return failure(r.settings.receivedURL(o), msgInitGeneric), nil
	}

	if err := o.ReadyForCheckout(); err != nil {
		r.log.Warn("checkout refused", "order_id", o.ID, "err", err)
		return failure(retry, msgInitGeneric), nil
	}

	status := r.settings.CheckoutStatus
	if status == "" {
		status = o.Status
	}
	if err := r.repo.Transition(ctx, o.ID, status, "Checkout with Sokin Pay.", nil); err != nil {
		return InitiateResult{}, fmt.Errorf("set checkout status: %w", err)
	}
	r.host.ReduceStock(ctx, o)
	r.host.EmptyCart(ctx, o)

	req := buildSessionRequest(o, r.settings.receivedURL(o), r.now())
	created, err := r.client.CreateOrder(ctx, req)
	if err != nil {
		var be *domain.BusinessError
		if errors.As(err, &be) {
			msg := be.Message
			if msg == "" {
				msg = msgInitUnexpected
			}
			r.log.Info("sokin rejected checkout", "order_id", o.ID, "status", be.Status, "message", be.Message)
			return failure(retry, "Payment Error: "+html.EscapeString(msg)), nil
		}
		r.log.Error("sokin create order failed", "order_id", o.ID, "err", err)
		return failure(retry, msgInitGeneric), nil
	}

	ref := domain.RemoteRef{OrderID: created.OrderID, CorporateID: created.CorporateID}
	if err := r.repo.AttachRemote(ctx, o.ID, ref); err != nil {
		if errors.Is(err, domain.ErrRemoteRefAlreadySet) {
			r.audit.Warn(ctx, AuditEvent{
				Message:               "Sokin Pay: new session refused for a paid order",
				OrderID:               o.ID,
				StoredRemoteOrderID:   o.Remote.OrderID,
				CallbackRemoteOrderID: created.OrderID,
			})
		}
		r.log.Error("attach remote order failed", "order_id", o.ID, "remote_order_id", created.OrderID, "err", err)
		return failure(retry, msgInitGeneric), nil
	}

	if o.Remote.OrderID != "" {
		r.log.Info("sokin session replaced", "order_id", o.ID, "previous_remote_order_id", o.Remote.OrderID)
	}
	r.log.Info("sokin session created", "order_id", o.ID, "remote_order_id", created.OrderID)
	return InitiateResult{Result: ResultSuccess, Redirect: r.settings.sessionURL(created)}, nil
}

// Reconcile applies the customer's return from Sokin to the order.
// It is safe to call again with the same callback.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string, caller Caller, cb Callback) (ReconcileResult, error) {
	o, err := r.repo.Get(ctx, orderID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o.PaymentMethod != r.settings.PaymentMethod {
		return none(), nil
	}

	if !caller.mayAct(o, cb.OrderKey) {
		r.audit.Warn(ctx, AuditEvent{
			Message:           "Sokin Pay: Unauthorized order access attempt",
			OrderID:           o.ID,
			CurrentCustomerID: caller.CustomerID,
			OrderCustomerID:   o.CustomerID,
		})
		return ReconcileResult{Action: ActionRejected}, nil
	}

	if cb.Status == CallbackReturn {
		return r.cancel(ctx, o)
	}

	if cb.RemoteOrderID == "" {
		return none(), nil
	}
	if o.Remote.OrderID == "" || o.Remote.OrderID != cb.RemoteOrderID {
		r.audit.Warn(ctx, AuditEvent{
			Message:               "Sokin Pay: orderId validation failed",
			OrderID:               o.ID,
			StoredRemoteOrderID:   o.Remote.OrderID,
			CallbackRemoteOrderID: cb.RemoteOrderID,
		})
		return ReconcileResult{Action: ActionRejected}, nil
	}

	return r.settle(ctx, o)
}

// Poll re-checks Sokin for an order using its stored remote id.
func (r *Reconciler) Poll(ctx context.Context, orderID string) (ReconcileResult, error) {
	o, err := r.repo.Get(ctx, orderID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o.PaymentMethod != r.settings.PaymentMethod || o.Remote.OrderID == "" {
		return none(), nil
	}
	return r.settle(ctx, o)
}

func (r *Reconciler) cancel(ctx context.Context, o domain.Order) (ReconcileResult, error) {
	if o.Status.Terminal() {
		r.log.Warn("return ignored for closed order", "order_id", o.ID, "status", o.Status)
		return none(), nil
	}
	err := r.repo.Transition(ctx, o.ID, domain.StatusPending, "Customer returned from Sokin without paying.",
		domain.PaymentCancelled{OrderID: o.ID})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("mark order %s pending: %w", o.ID, err)
	}
	return ReconcileResult{
		Action:   ActionCancelled,
		Redirect: r.settings.paymentURL(o),
		Notice:   &Notice{Level: NoticeInfo, Message: msgCancelled},
	}, nil
}

func (r *Reconciler) settle(ctx context.Context, o domain.Order) (ReconcileResult, error) {
	if o.Status.Terminal() {
		return none(), nil
	}

	session, err := r.client.FetchOrder(ctx, o.Remote.OrderID)
	if err != nil {
		r.log.Warn("sokin fetch order failed", "order_id", o.ID, "remote_order_id", o.Remote.OrderID, "err", err)
		return none(), nil
	}

	payment, _ := session.FirstPayment()
	switch session.Verdict() {
	case domain.VerdictDeclined:
		ev := domain.PaymentFailed{OrderID: o.ID, RemoteOrderID: o.Remote.OrderID, PaymentID: payment.PaymentID, Reason: payment.Status}
		if err := r.repo.Transition(ctx, o.ID, domain.StatusFailed, "Payment declined by Sokin.", ev); err != nil {
			return ReconcileResult{}, fmt.Errorf("mark order %s failed: %w", o.ID, err)
		}
		return ReconcileResult{
			Action:   ActionDeclined,
			Redirect: r.settings.paymentURL(o),
			Notice:   &Notice{Level: NoticeError, Message: msgDeclined},
		}, nil

	case domain.VerdictAccepted:
		ev := domain.PaymentCompleted{OrderID: o.ID, RemoteOrderID: o.Remote.OrderID, PaymentID: payment.PaymentID, RemoteStatus: string(session.OrderStatus)}
		first, err := r.repo.CompletePayment(ctx, o.ID, ev)
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("complete payment for %s: %w", o.ID, err)
		}
		if first {
			r.log.Info("payment completed", "order_id", o.ID, "remote_order_id", o.Remote.OrderID, "remote_status", session.OrderStatus)
		}
		return ReconcileResult{Action: ActionConfirmed}, nil
	}

	r.log.Debug("sokin session undecided", "order_id", o.ID, "remote_status", session.OrderStatus, "payments", len(session.Payments))
	return none(), nil
}

func none() ReconcileResult { return ReconcileResult{Action: ActionNone} }

func failure(redirect, msg string) InitiateResult {
	return InitiateResult{
		Result:   ResultFailure,
		Redirect: redirect,
		Notice:   &Notice{Level: NoticeError, Message: msg},
	}
}
