package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := WithLogger(context.Background(), base.WithComponent("httpapi"))
	ctx = WithRequestID(ctx, "req-1")
	FromContext(ctx).Infow("sale recorded", "item_name", "Coffee")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "httpapi", fields["component"])
	assert.Equal(t, "Coffee", fields["item_name"])
}

func TestNewFallsBackToInfoOnUnknownLevel(t *testing.T) {
	l, err := New(Config{Level: "chatty", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
}
