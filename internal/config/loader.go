package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. SOKINPAY_API_KEY or
// SOKINPAY_HOST_ORDER_PAY_URL.
const EnvPrefix = "SOKINPAY"

// Load reads defaults, then the YAML file named by CONFIG_FILE if set, then
// the environment. Later sources win.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("title", d.Title)
	v.SetDefault("description", d.Description)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("checkout_url", d.CheckoutURL)
	v.SetDefault("checkout_status", d.CheckoutStatus)
	v.SetDefault("remote_timeout", d.RemoteTimeout)
	v.SetDefault("host.order_pay_url", d.Host.OrderPayURL)
	v.SetDefault("host.order_received_url", d.Host.OrderReceivedURL)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("pg_url", d.PGURL)
	v.SetDefault("redis_addr", d.RedisAddr)
	v.SetDefault("kafka_brokers", d.KafkaBrokers)
	v.SetDefault("topics.events", d.Topics.Events)
	v.SetDefault("topics.refunds", d.Topics.Refunds)
	v.SetDefault("topics.refund_group", d.Topics.RefundGroup)
	v.SetDefault("otel_endpoint", d.OTelEndpoint)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("audit_log", d.AuditLog)
	v.SetDefault("callback_rps", d.CallbackRPS)
	v.SetDefault("callback_burst", d.CallbackBurst)
	v.SetDefault("checkout_guard_ttl", d.CheckoutGuardTTL)
	v.SetDefault("dedupe_ttl", d.DedupeTTL)
}
