package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/metrics"
	"github.com/dmehra2102/sokinpay-gateway/pkg/tracing"
)

type Refunder interface {
	CreateRefund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (domain.Refund, error)
}

// Deduper remembers processed messages. *idempotency.Store implements it.
type Deduper interface {
	Key(parts ...any) string
	Seen(ctx context.Context, key string) (bool, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RefundConsumer turns host refund events into Sokin refunds. Each message
// is attempted once; a failed refund is logged and committed.
type RefundConsumer struct {
	log      *slog.Logger
	reader   messageReader
	refunder Refunder
	dedupe   Deduper
	tracer   trace.Tracer
}

func NewRefundConsumer(log *slog.Logger, brokers []string, topic, group string, refunder Refunder, dedupe Deduper) *RefundConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &RefundConsumer{
		log:      log,
		reader:   r,
		refunder: refunder,
		dedupe:   dedupe,
		tracer:   otel.Tracer("refund-consumer"),
	}
}

func (c *RefundConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !c.handle(ctx, msg) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// handle processes one message and reports whether it may be committed.
// A dedupe store outage leaves the message uncommitted for redelivery.
func (c *RefundConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	key := c.dedupe.Key(msg.Topic, msg.Partition, msg.Offset)
	seen, err := c.dedupe.Seen(ctx, key)
	if err != nil {
		c.log.Error("idempotency check failed", "key", key, "err", err)
		return false
	}
	if seen {
		c.log.Info("duplicate message skipped", "key", key)
		return true
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeRefundRequested")
	defer span.End()

	var ev domain.RefundRequested
	if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.OrderID == "" {
		c.log.Error("invalid refund event", "offset", msg.Offset, "err", err)
		metrics.Refunds.WithLabelValues("invalid").Inc()
		return true
	}
	span.SetAttributes(attribute.String("order.id", ev.OrderID))

	refund, err := c.refunder.CreateRefund(msgCtx, ev.OrderID, ev.Amount, ev.Reason)
	if err != nil {
		span.RecordError(err)
		metrics.Refunds.WithLabelValues("error").Inc()
		c.log.Error("refund failed", "order_id", ev.OrderID, "amount", ev.Amount.String(), "err", err)
		return true
	}
	metrics.Refunds.WithLabelValues("ok").Inc()
	c.log.Info("refund processed", "order_id", ev.OrderID, "refund_id", refund.ID)
	return true
}
