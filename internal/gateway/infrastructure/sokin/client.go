package sokin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/metrics"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

const maxBody = 1 << 20

var (
	errMalformed  = errors.New("malformed response body")
	errMissingIDs = errors.New("response missing corporateId or orderId")
)

// Client talks to the Sokin Pay API. Every call is made once; there are no retries.
type Client struct {
	log     *slog.Logger
	http    *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewClient(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		tracer:  otel.Tracer("sokin-client"),
	}
}

func (c *Client) CreateOrder(ctx context.Context, req domain.SessionRequest) (domain.SessionCreated, error) {
	const op = "create_order"
	var out createOrderResponse
	status, err := c.do(ctx, op, http.MethodPost, "/orders", req, &out)
	if err != nil {
		return domain.SessionCreated{}, err
	}
	if out.CorporateID == "" || out.OrderID == "" {
		c.log.Warn("sokin create order returned no ids", "status", status)
		return domain.SessionCreated{}, &domain.TransportError{Op: op, StatusCode: status, Err: errMissingIDs}
	}
	return domain.SessionCreated{CorporateID: string(out.CorporateID), OrderID: string(out.OrderID)}, nil
}

func (c *Client) FetchOrder(ctx context.Context, remoteOrderID string) (domain.RemoteSession, error) {
	var out fetchOrderResponse
	if _, err := c.do(ctx, "fetch_order", http.MethodGet, "/orders/"+url.PathEscape(remoteOrderID), nil, &out); err != nil {
		return domain.RemoteSession{}, err
	}

	o := out.Data.Order
	session := domain.RemoteSession{
		OrderID:     string(o.OrderID),
		OrderStatus: domain.RemoteOrderStatus(o.OrderStatus),
	}
	if session.OrderID == "" {
		session.OrderID = remoteOrderID
	}
	for _, p := range o.Payments {
		session.Payments = append(session.Payments, domain.RemotePayment{
			PaymentID: string(p.PaymentID),
			Status:    string(p.Status),
		})
	}
	return session, nil
}

func (c *Client) CreateRefund(ctx context.Context, sub domain.RefundSubmission) (domain.RefundReceipt, error) {
	status, err := c.do(ctx, "create_refund", http.MethodPost, "/refunds", sub, nil)
	if err != nil {
		return domain.RefundReceipt{}, err
	}
	return domain.RefundReceipt{StatusCode: status}, nil
}

// do sends one request and decodes the reply into out. A success=false,
// status=400 body is a *domain.BusinessError whatever the HTTP status;
// every other failure is a *domain.TransportError. A nil out accepts any
// 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (int, error) {
	ctx, span := c.tracer.Start(ctx, "sokin."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("sokin.path", path))

	start := time.Now()
	defer func() {
		metrics.RemoteLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
	}()

	fail := func(status int, err error) (int, error) {
		c.observe(op, "transport_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("sokin call failed", "op", op, "status", status, "err", err)
		return status, &domain.TransportError{Op: op, StatusCode: status, Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fail(0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	tracing.InjectHTTPHeaders(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.rejected() {
		c.observe(op, "business_error")
		span.SetStatus(codes.Error, "rejected")
		return resp.StatusCode, &domain.BusinessError{Status: 400, Message: string(env.Message)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fail(resp.StatusCode, fmt.Errorf("%w: %v", errMalformed, err))
		}
	}

	c.observe(op, "ok")
	return resp.StatusCode, nil
}

func (c *Client) observe(op, outcome string) {
	metrics.RemoteCalls.WithLabelValues(op, outcome).Inc()
}
