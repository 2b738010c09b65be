package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core)).
		WithFields(map[string]interface{}{"trip_id": "t1"}).
		WithError(errors.New("boom"))

	log.Warn("cover image fallback", map[string]interface{}{"destination": "Kyoto"})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "cover image fallback", entries[0].Message)
		assert.Equal(t, "t1", ctx["trip_id"])
		assert.Equal(t, "Kyoto", ctx["destination"])
		assert.Equal(t, "boom", ctx["error"])
	}
}

func TestNewLevels(t *testing.T) {
	l := NewZap("error", "json")
	assert.False(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))

	l = NewZap("", "console")
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
