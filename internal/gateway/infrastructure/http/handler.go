package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/metrics"
)

// CustomerHeader carries the authenticated host customer id, empty for guests.
const CustomerHeader = "X-Customer-Id"

type Reconciler interface {
	Initiate(ctx context.Context, orderID string) (application.InitiateResult, error)
	Reconcile(ctx context.Context, orderID string, caller application.Caller, cb application.Callback) (application.ReconcileResult, error)
	Poll(ctx context.Context, orderID string) (application.ReconcileResult, error)
}

type Refunder interface {
	CreateRefund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (domain.Refund, error)
}

type Orders interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	SaveSnapshot(ctx context.Context, o domain.Order) error
}

// Guard serializes checkouts of one order. *idempotency.Store implements it.
type Guard interface {
	Key(parts ...any) string
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Gateway describes the payment method as the host's checkout shows it.
type Gateway struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

type Handler struct {
	log        *slog.Logger
	gateway    Gateway
	orders     Orders
	reconciler Reconciler
	refunds    Refunder
	guard      Guard
	limiter    *IPRateLimiter
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, gateway Gateway, orders Orders, reconciler Reconciler, refunds Refunder, guard Guard, limiter *IPRateLimiter) *Handler {
	return &Handler{
		log:        log,
		gateway:    gateway,
		orders:     orders,
		reconciler: reconciler,
		refunds:    refunds,
		guard:      guard,
		limiter:    limiter,
		tracer:     otel.Tracer("gateway-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/gateway", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, h.gateway)
	})

	r.Route("/orders/{id}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Put("/", h.putOrder)
		r.Post("/checkout", h.checkout)
		r.Post("/poll", h.poll)
		r.Post("/refunds", h.createRefund)
		r.With(h.limiter.Middleware).Get("/return", h.callback)
	})
	return r
}

type orderView struct {
	ID                string             `json:"id"`
	CustomerID        string             `json:"customer_id,omitempty"`
	PaymentMethod     string             `json:"payment_method"`
	Status            domain.OrderStatus `json:"status"`
	Total             decimal.Decimal    `json:"total"`
	Currency          string             `json:"currency"`
	RemoteOrderID     string             `json:"remote_order_id,omitempty"`
	RemoteCorporateID string             `json:"remote_corporate_id,omitempty"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{
		ID:                o.ID,
		CustomerID:        o.CustomerID,
		PaymentMethod:     o.PaymentMethod,
		Status:            o.Status,
		Total:             o.Total,
		Currency:          o.Currency,
		RemoteOrderID:     o.Remote.OrderID,
		RemoteCorporateID: o.Remote.CorporateID,
		PaidAt:            o.PaidAt,
	})
}

type orderSnapshot struct {
	CustomerID    string          `json:"customer_id"`
	OrderKey      string          `json:"order_key"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	Buyer         domain.Buyer    `json:"buyer"`
	Billing       domain.Address  `json:"billing"`
	Shipping      *domain.Address `json:"shipping"`
	CreatedAt     time.Time       `json:"created_at"`
}

// putOrder stores the host's copy of an order so the gateway can act on it.
func (h *Handler) putOrder(w http.ResponseWriter, r *http.Request) {
	var req orderSnapshot
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "payment_method is required")
		return
	}

	o := domain.Order{
		ID:            chi.URLParam(r, "id"),
		CustomerID:    req.CustomerID,
		Key:           req.OrderKey,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		Total:         req.Total,
		Currency:      req.Currency,
		Buyer:         req.Buyer,
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		CreatedAt:     req.CreatedAt,
	}
	if err := h.orders.SaveSnapshot(r.Context(), o); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()
	id := chi.URLParam(r, "id")
	span.SetAttributes(attribute.String("order.id", id))

	if !h.gateway.Enabled {
		writeError(w, http.StatusServiceUnavailable, "Sokin Pay is disabled")
		return
	}

	key := h.guard.Key("checkout", id)
	first, err := h.guard.Acquire(ctx, key)
	switch {
	case err != nil:
		h.log.Warn("checkout guard unavailable", "order_id", id, "err", err)
	case !first:
		writeError(w, http.StatusConflict, "checkout already in progress for this order")
		return
	}

	res, err := h.reconciler.Initiate(ctx, id)
	if err != nil || res.Result != application.ResultSuccess {
		if relErr := h.guard.Release(ctx, key); relErr != nil {
			h.log.Warn("checkout guard release failed", "order_id", id, "err", relErr)
		}
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initiateResponse{Result: res.Result, Redirect: res.Redirect, Notice: res.Notice})
}

// callback is where Sokin sends the customer back to. Anonymous visitors
// carry the order key in the key query parameter.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SokinReturn")
	defer span.End()

	q := r.URL.Query()
	caller := application.Caller{CustomerID: r.Header.Get(CustomerHeader)}
	cb := application.Callback{Status: q.Get("status"), RemoteOrderID: q.Get("orderId"), OrderKey: q.Get("key")}

	res, err := h.reconciler.Reconcile(ctx, chi.URLParam(r, "id"), caller, cb)
	if err != nil {
		h.fail(w, err)
		return
	}
	metrics.ReconcileOutcomes.WithLabelValues(string(res.Action)).Inc()
	writeJSON(w, http.StatusOK, reconcileView(res))
}

func (h *Handler) poll(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconciler.Poll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	metrics.ReconcileOutcomes.WithLabelValues(string(res.Action)).Inc()
	writeJSON(w, http.StatusOK, reconcileView(res))
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type refundResponse struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ReferenceNo string          `json:"reference_no"`
}

func (h *Handler) createRefund(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateRefund")
	defer span.End()
	id := chi.URLParam(r, "id")

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	o, err := h.orders.Get(ctx, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if o.Status == domain.StatusFailed {
		writeError(w, http.StatusConflict, "failed orders cannot be refunded")
		return
	}

	refund, err := h.refunds.CreateRefund(ctx, id, req.Amount, req.Reason)
	if err != nil {
		metrics.Refunds.WithLabelValues(refundOutcome(err)).Inc()
		if errors.Is(err, domain.ErrRefundNotRecorded) {
			h.log.Error("refund not recorded", "order_id", id, "refund_id", refund.ID, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":     "refund accepted by Sokin Pay but not recorded",
				"refund_id": refund.ID.String(),
			})
			return
		}
		h.fail(w, err)
		return
	}
	metrics.Refunds.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, refundResponse{
		ID:          refund.ID.String(),
		OrderID:     refund.OrderID,
		PaymentID:   refund.PaymentID,
		Amount:      refund.Amount,
		Currency:    refund.Currency,
		ReferenceNo: refund.ReferenceNo,
	})
}

func refundOutcome(err error) string {
	var be *domain.BusinessError
	switch {
	case errors.As(err, &be):
		return "rejected"
	case errors.Is(err, domain.ErrNoPayments), errors.Is(err, domain.ErrNoRemoteOrder), errors.Is(err, domain.ErrInvalidAmount):
		return "invalid"
	case errors.Is(err, domain.ErrRefundNotRecorded):
		return "not_recorded"
	default:
		return "error"
	}
}

// fail maps domain and remote errors onto status codes. Business messages
// from Sokin are shown escaped; everything else is logged and kept generic.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	if msg, ok := application.DisplayMessage(err); ok {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	var te *domain.TransportError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, domain.ErrInvalidAmount.Error())
	case errors.Is(err, domain.ErrNoPayments):
		writeError(w, http.StatusUnprocessableEntity, domain.ErrNoPayments.Error())
	case errors.Is(err, domain.ErrNoRemoteOrder):
		writeError(w, http.StatusUnprocessableEntity, domain.ErrNoRemoteOrder.Error())
	case errors.As(err, &te):
		h.log.Error("sokin unavailable", "err", err)
		writeError(w, http.StatusBadGateway, "payment provider unavailable")
	default:
		h.log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
