package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	prod, err := NewLogger("production", nil)
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, prod.Core().Enabled(zapcore.InfoLevel))

	dev, err := NewLogger("development", time.UTC)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))
}

func TestScheduleTimeEncoder(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	enc := zapcore.NewMapObjectEncoder()

	err := enc.AddArray("ts", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
		scheduleTimeEncoder(loc)(time.Date(2025, 10, 20, 2, 0, 0, 0, time.UTC), arr)
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"2025-10-20T09:00:00.000+07:00"}, enc.Fields["ts"])
}
