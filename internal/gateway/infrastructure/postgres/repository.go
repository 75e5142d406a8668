package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/outbox"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var (
		o                  domain.Order
		status, total      string
		remoteID, remoteCo *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, order_key, payment_method, status, total::text, currency,
		       buyer, billing, shipping, remote_order_id, remote_corporate_id,
		       paid_at, created_at, updated_at
		FROM gateway_orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.Key, &o.PaymentMethod, &status, &total, &o.Currency,
			&o.Buyer, &o.Billing, &o.Shipping, &remoteID, &remoteCo,
			&o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	if o.Status, err = domain.ParseStatus(status); err != nil {
		return domain.Order{}, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, fmt.Errorf("order %s total: %w", id, err)
	}
	if remoteID != nil {
		o.Remote.OrderID = *remoteID
	}
	if remoteCo != nil {
		o.Remote.CorporateID = *remoteCo
	}
	return o, nil
}

// SaveSnapshot upserts the host's view of an order. The Sokin reference and
// payment stamp are owned by the gateway and never overwritten here.
func (r *Repository) SaveSnapshot(ctx context.Context, o domain.Order) error {
	created := o.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO gateway_orders (id, customer_id, payment_method, status, total, currency, buyer, billing, shipping, created_at, order_key, updated_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9,$10,$11,now())
		ON CONFLICT (id) DO UPDATE SET customer_id=$2, payment_method=$3, status=$4, total=$5::numeric,
			currency=$6, buyer=$7, billing=$8, shipping=$9, order_key=$11, updated_at=now()`,
		o.ID, o.CustomerID, o.PaymentMethod, string(o.Status), o.Total.String(), o.Currency,
		o.Buyer, o.Billing, o.Shipping, created, o.Key)
	return err
}

func (r *Repository) Transition(ctx context.Context, id string, to domain.OrderStatus, note string, ev domain.Event) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE gateway_orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	if err := addNote(ctx, tx, id, note); err != nil {
		return err
	}
	if ev != nil {
		if err := enqueue(ctx, tx, id, ev); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AttachRemote links the order to a Sokin session. A retry after a decline
// replaces the earlier session; once the order is paid the link is fixed.
func (r *Repository) AttachRemote(ctx context.Context, id string, ref domain.RemoteRef) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE gateway_orders SET remote_order_id=$2, remote_corporate_id=$3, updated_at=now()
		WHERE id=$1 AND paid_at IS NULL`, id, ref.OrderID, ref.CorporateID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gateway_orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrOrderNotFound
	}
	return domain.ErrRemoteRefAlreadySet
}

func (r *Repository) CompletePayment(ctx context.Context, id string, ev domain.PaymentCompleted) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var paidAt *time.Time
	err = tx.QueryRow(ctx, `SELECT paid_at FROM gateway_orders WHERE id=$1 FOR UPDATE`, id).Scan(&paidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrOrderNotFound
	}
	if err != nil {
		return false, err
	}

	first := paidAt == nil
	if _, err := tx.Exec(ctx, `
		UPDATE gateway_orders SET status=$2, paid_at=COALESCE(paid_at, now()), updated_at=now()
		WHERE id=$1`, id, string(domain.StatusProcessing)); err != nil {
		return false, err
	}
	if first {
		if err := addNote(ctx, tx, id, "Payment completed with Sokin Pay. Sokin order "+ev.RemoteOrderID+"."); err != nil {
			return false, err
		}
		if err := enqueue(ctx, tx, id, ev); err != nil {
			return false, err
		}
	}
	return first, tx.Commit(ctx)
}

func (r *Repository) SaveRefund(ctx context.Context, rf domain.Refund, ev domain.RefundSubmitted) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO refunds (id, order_id, remote_order_id, payment_id, amount, currency, reason, reference_no, created_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6,$7,$8,$9)`,
		rf.ID, rf.OrderID, rf.RemoteOrderID, rf.PaymentID, rf.Amount.String(), rf.Currency, rf.Reason, rf.ReferenceNo, rf.CreatedAt)
	if err != nil {
		return err
	}
	note := fmt.Sprintf("Refunded %s %s through Sokin Pay (payment %s).", rf.Amount.String(), rf.Currency, rf.PaymentID)
	if err := addNote(ctx, tx, rf.OrderID, note); err != nil {
		return err
	}
	if err := enqueue(ctx, tx, rf.OrderID, ev); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Refunds(ctx context.Context, orderID string) ([]domain.Refund, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, remote_order_id, payment_id, amount::text, currency, reason, reference_no, created_at
		FROM refunds WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Refund
	for rows.Next() {
		var rf domain.Refund
		var amount string
		if err := rows.Scan(&rf.ID, &rf.OrderID, &rf.RemoteOrderID, &rf.PaymentID, &amount, &rf.Currency, &rf.Reason, &rf.ReferenceNo, &rf.CreatedAt); err != nil {
			return nil, err
		}
		if rf.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

// Enqueue writes a standalone outbox event for the order.
func (r *Repository) Enqueue(ctx context.Context, orderID string, ev domain.Event) error {
	return enqueue(ctx, r.pool, orderID, ev)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func addNote(ctx context.Context, tx pgx.Tx, orderID, note string) error {
	if note == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `INSERT INTO order_notes (order_id, note) VALUES ($1,$2)`, orderID, note)
	return err
}

func enqueue(ctx context.Context, db execer, orderID string, ev domain.Event) error {
	e, err := outbox.NewEvent(domain.AggregateOrder, orderID, ev, nil, tracing.Traceparent(ctx))
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		e.AggregateType, e.AggregateID, e.Type, e.Payload, e.Headers, e.Traceparent)
	return err
}
