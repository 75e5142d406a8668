package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Enabled)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
enabled: true
api_url: https://api.sokin.test/v1
api_key: from-file
checkout_url: https://pay.sokin.test/checkout
checkout_status: wc-on-hold
remote_timeout: 10s
host:
  order_pay_url: https://shop.test/pay/{order_id}
topics:
  refunds: shop.refunds
`), 0o600))
	t.Setenv("SOKINPAY_API_KEY", "from-env")
	t.Setenv("SOKINPAY_HOST_ORDER_RECEIVED_URL", "https://shop.test/thanks/{order_id}")
	t.Setenv("SOKINPAY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "https://shop.test/pay/{order_id}", cfg.Host.OrderPayURL)
	assert.Equal(t, "https://shop.test/thanks/{order_id}", cfg.Host.OrderReceivedURL)
	assert.Equal(t, "shop.refunds", cfg.Topics.Refunds)
	assert.Equal(t, "sokinpay.events", cfg.Topics.Events)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

	status, err := cfg.Status()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, status)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.CheckoutStatus = "shipped"
	cfg.APIURL = "not a url"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "api_url must be an absolute URL")
	assert.Contains(t, msg, "checkout_url is required")
	assert.Contains(t, msg, "api_key is required")
	assert.Contains(t, msg, "checkout_status")
}

func TestStatus_Unset(t *testing.T) {
	status, err := Default().Status()
	require.NoError(t, err)
	assert.Empty(t, status)
}
