package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSecretKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("gateway configured", "model", "gpt-4", "api_key", "sk-123", "Authorization", "Bearer sk-123")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "gpt-4", fields["model"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["Authorization"])
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).With("category", "possession")

	log.Warn("missing value for placeholder", "placeholder", "[Date]")

	require.Equal(t, 1, logs.FilterMessage("missing value for placeholder").Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "possession", fields["category"])
	assert.Equal(t, "[Date]", fields["placeholder"])
}

func TestOddKeyValueCount(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, out)
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, log)
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("discarded", "k", "v")
}
