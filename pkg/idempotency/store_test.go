package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	s := NewStore(nil, "sokinpay:idem", time.Hour)
	assert.Equal(t, "sokinpay:idem:order.refunds:0:42", s.Key("order.refunds", 0, int64(42)))
	assert.Equal(t, "sokinpay:idem", s.Key())
}
