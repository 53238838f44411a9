package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.CompleteReassign)
	assert.Equal(t, 4, cfg.AuditorWorkers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("ORDER_COMPLETE_REASSIGN", "false")

	cfg := Load()
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.CompleteReassign)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("AUDITOR_WORKERS", "many")

	cfg := Load()
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 4, cfg.AuditorWorkers)
}
