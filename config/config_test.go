package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvDefaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTTL)
	assert.Equal(t, 3, cfg.Mail.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Mail.RetryDelay)
	assert.Equal(t, "174379", cfg.Mpesa.ShortCode)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PASSWORD_RESET_TIMEOUT", "60")
	t.Setenv("MPESA_TIMEOUT", "3s")
	t.Setenv("EMAIL_USE_SSL", "false")
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Minute, cfg.Auth.ResetTTL)
	assert.Equal(t, 3*time.Second, cfg.Mpesa.Timeout)
	assert.False(t, cfg.Mail.UseSSL)
	assert.Equal(t, 32, cfg.Workers.PoolSize)
}
