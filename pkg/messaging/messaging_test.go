package messaging

import (
	"bravolearn_backend/pkg/logger"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher("bravolearn")
	require.NoError(t, p.Publish(context.Background(), "lesson.completed", map[string]int{"score": 75}))

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bravolearn.lesson.completed", msgs[0].Subject)
	assert.JSONEq(t, `{"score":75}`, string(msgs[0].Data))
}

func TestQualify(t *testing.T) {
	assert.Equal(t, "a.b", qualify("a", "b"))
	assert.Equal(t, "b", qualify("", "b"))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "x", nil))
}

func TestDisconnectLogsThroughLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	onDisconnect(nil, nil)
	assert.Zero(t, logs.Len())

	onDisconnect(nil, errors.New("connection reset"))
	entries := logs.FilterMessage("NATS disconnected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "connection reset", entries[0].ContextMap()["error"])
}
