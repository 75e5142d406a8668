package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
)

const DefaultSource = "sokinpay-gateway"

// Logger records security-relevant warnings. Records go to a JSON audit
// file; when that sink cannot be written they go to the fallback writer
// as a single plain-text line with reduced context.
type Logger struct {
	source   string
	primary  slog.Handler
	fallback *log.Logger
}

// Open appends to the audit file at path, creating its directory. If the
// file cannot be opened every record takes the fallback path.
func Open(source, path string, fallback io.Writer) (*Logger, io.Closer) {
	if path == "" {
		return NewWithWriter(source, nil, fallback), nopCloser{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return NewWithWriter(source, nil, fallback), nopCloser{}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return NewWithWriter(source, nil, fallback), nopCloser{}
	}
	return NewWithWriter(source, f, fallback), f
}

// NewWithWriter builds a Logger over w. A nil w sends everything to fallback.
func NewWithWriter(source string, w io.Writer, fallback io.Writer) *Logger {
	if source == "" {
		source = DefaultSource
	}
	if fallback == nil {
		fallback = os.Stderr
	}
	l := &Logger{source: source, fallback: log.New(fallback, "", log.LstdFlags)}
	if w != nil {
		l.primary = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (l *Logger) Warn(ctx context.Context, ev application.AuditEvent) {
	if l.primary != nil {
		rec := slog.NewRecord(time.Now(), slog.LevelWarn, ev.Message, 0)
		rec.AddAttrs(slog.String("source", l.source))
		addIf(&rec, "order_id", ev.OrderID)
		addIf(&rec, "current_user_id", ev.CurrentCustomerID)
		addIf(&rec, "order_customer_id", ev.OrderCustomerID)
		addIf(&rec, "stored_order_id", ev.StoredRemoteOrderID)
		addIf(&rec, "get_order_id", ev.CallbackRemoteOrderID)
		if err := l.primary.Handle(ctx, rec); err == nil {
			return
		}
	}
	l.fallback.Print(fallbackLine(l.source, ev))
}

func addIf(rec *slog.Record, key, val string) {
	if val != "" {
		rec.AddAttrs(slog.String(key, val))
	}
}

// fallbackContext leaves out the order owner on purpose; field order is fixed.
type fallbackContext struct {
	Src           string `json:"src"`
	OrderID       string `json:"order_id,omitempty"`
	CurrentUserID string `json:"current_user_id,omitempty"`
	StoredOrderID string `json:"stored_order_id,omitempty"`
	GetOrderID    string `json:"get_order_id,omitempty"`
}

func fallbackLine(source string, ev application.AuditEvent) string {
	b, _ := json.Marshal(fallbackContext{
		Src:           source,
		OrderID:       ev.OrderID,
		CurrentUserID: ev.CurrentCustomerID,
		StoredOrderID: ev.StoredRemoteOrderID,
		GetOrderID:    ev.CallbackRemoteOrderID,
	})
	return fmt.Sprintf("Sokin Pay WARNING: %s %s", ev.Message, b)
}
