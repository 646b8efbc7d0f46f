package omfile

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLoggerDiscards(t *testing.T) {
	l := NoopLogger()

	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.Error("never emitted")
}

func TestNewLoggerNilHandler(t *testing.T) {
	l := NewLogger(nil)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}
