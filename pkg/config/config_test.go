package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_INT", "not-a-number")
	t.Setenv("STOREFRONT_TEST_DUR", "3s")
	t.Setenv("STOREFRONT_TEST_BAD_DUR", "-1s")

	assert.Equal(t, 7, EnvIntDefault("STOREFRONT_TEST_INT", 7))
	assert.Equal(t, 3*time.Second, EnvDurationDefault("STOREFRONT_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDurationDefault("STOREFRONT_TEST_BAD_DUR", time.Second))
	assert.Equal(t, "fallback", EnvDefault("STOREFRONT_TEST_UNSET", "fallback"))
}

func TestLoad_NormalisesValues(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")
	t.Setenv("CURRENCY", "USD")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.PaymentTimeout)
}
