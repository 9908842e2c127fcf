package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestInitLogger_WritesJSONFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	logger, closer, err := InitLogger(dir, slog.LevelInfo)
	require.NoError(t, err)

	logger.Info("session saved", "session_id", 42)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "eaglechat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session saved"`)
	assert.Contains(t, string(data), `"session_id":42`)
}

func TestInitTelemetry(t *testing.T) {
	dir := t.TempDir()
	p, err := InitTelemetry(context.Background(), dir)
	require.NoError(t, err)

	_, span := p.Tracer.Start(context.Background(), "chat.completion")
	span.End()

	counter, err := p.Meter.Int64Counter("chat.requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	p.Shutdown()

	_, err = os.Stat(filepath.Join(dir, "eaglechat_traces.log"))
	assert.NoError(t, err)
}

func TestNoop(t *testing.T) {
	p := Noop()
	_, span := p.Tracer.Start(context.Background(), "x")
	span.End()
	p.Shutdown()
}
