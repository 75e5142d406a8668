package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/pkg/logging"
)

type memDeduper struct {
	seen map[string]bool
	err  error
}

func (d *memDeduper) Key(parts ...any) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = fmt.Sprint(p)
	}
	return strings.Join(ss, ":")
}

func (d *memDeduper) Seen(_ context.Context, key string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[key] {
		return true, nil
	}
	d.seen[key] = true
	return false, nil
}

type refundCall struct {
	orderID string
	amount  decimal.Decimal
	reason  string
}

type recordingRefunder struct {
	calls []refundCall
	err   error
}

func (r *recordingRefunder) CreateRefund(_ context.Context, orderID string, amount decimal.Decimal, reason string) (domain.Refund, error) {
	r.calls = append(r.calls, refundCall{orderID, amount, reason})
	return domain.Refund{ID: uuid.New(), OrderID: orderID}, r.err
}

type scriptedReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func newTestConsumer(reader messageReader, refunder Refunder, dedupe Deduper) *RefundConsumer {
	return &RefundConsumer{
		log:      logging.Discard(),
		reader:   reader,
		refunder: refunder,
		dedupe:   dedupe,
		tracer:   noop.NewTracerProvider().Tracer("test"),
	}
}

func refundMessage(offset int64, body string) kafka.Message {
	return kafka.Message{Topic: "order.refunds", Partition: 0, Offset: offset, Value: []byte(body)}
}

func TestRefundConsumer_Run(t *testing.T) {
	reader := &scriptedReader{msgs: []kafka.Message{
		refundMessage(1, `{"OrderID":"1001","Amount":"10.50","Reason":"damaged"}`),
		refundMessage(1, `{"OrderID":"1001","Amount":"10.50","Reason":"damaged"}`),
		refundMessage(2, `not json`),
		refundMessage(3, `{"OrderID":"1002","Amount":5}`),
	}}
	refunder := &recordingRefunder{}
	c := newTestConsumer(reader, refunder, &memDeduper{seen: map[string]bool{}})

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, refunder.calls, 2)
	assert.Equal(t, "1001", refunder.calls[0].orderID)
	assert.Equal(t, "10.5", refunder.calls[0].amount.String())
	assert.Equal(t, "damaged", refunder.calls[0].reason)
	assert.Equal(t, "1002", refunder.calls[1].orderID)
	assert.Equal(t, []int64{1, 1, 2, 3}, reader.committed)
}

func TestRefundConsumer_FailedRefundIsCommitted(t *testing.T) {
	refunder := &recordingRefunder{err: fmt.Errorf("order 1001: %w", domain.ErrNoPayments)}
	c := newTestConsumer(&scriptedReader{}, refunder, &memDeduper{seen: map[string]bool{}})

	ok := c.handle(context.Background(), refundMessage(7, `{"OrderID":"1001","Amount":"1"}`))
	assert.True(t, ok)
	assert.Len(t, refunder.calls, 1)
}

func TestRefundConsumer_DedupeOutageLeavesMessage(t *testing.T) {
	refunder := &recordingRefunder{}
	c := newTestConsumer(&scriptedReader{}, refunder, &memDeduper{err: errors.New("redis down")})

	ok := c.handle(context.Background(), refundMessage(7, `{"OrderID":"1001","Amount":"1"}`))
	assert.False(t, ok)
	assert.Empty(t, refunder.calls)
}
