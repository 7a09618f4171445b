package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

// ── NewLogger ────────────────────────────────────────────────────────────────

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("sync-server")
	require.NotNil(t, l)
	l.Logger = l.Output(&buf)

	l.Info().Msg("hello")

	entry := logEntry(t, &buf)
	assert.Equal(t, "sync-server", entry["role"], "каждая запись несёт метку роли")
	assert.Contains(t, entry, "time")
}

func TestNewLogger_CallerFieldIsFunc(t *testing.T) {
	NewLogger("caller-role")
	assert.Equal(t, "func", zerolog.CallerFieldName)
}

func TestNewLogger_GlobalLevelIsDebug(t *testing.T) {
	NewLogger("level-role")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

// ── Nop ──────────────────────────────────────────────────────────────────────

func TestNop(t *testing.T) {
	l := Nop()
	require.NotNil(t, l)

	// Nop-логгер глотает всё; вызов не должен паниковать.
	assert.NotPanics(t, func() { l.Info().Str("k", "v").Msg("discarded") })
}

// ── GetChildLogger ───────────────────────────────────────────────────────────

func TestGetChildLogger(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger("inherited-role")
	parent.Logger = parent.Output(&buf)

	child := parent.GetChildLogger()
	require.NotNil(t, child)
	assert.NotSame(t, parent, child)

	child.Logger = child.Output(&buf)
	child.Info().Msg("child message")

	entry := logEntry(t, &buf)
	assert.Equal(t, "inherited-role", entry["role"], "дочерний логгер наследует поля родителя")
}

// ── FromContext / FromRequest ────────────────────────────────────────────────

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).With().Str("ctx-key", "ctx-value").Logger()
	ctx := zl.WithContext(context.Background())

	l := FromContext(ctx)
	require.NotNil(t, l)
	l.Info().Msg("from context")

	entry := logEntry(t, &buf)
	assert.Equal(t, "ctx-value", entry["ctx-key"])
}

func TestFromContext_EmptyContextNotNil(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromRequest(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf).With().Str("req-key", "req-value").Logger()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(zl.WithContext(req.Context()))

	l := FromRequest(req)
	require.NotNil(t, l)
	l.Info().Msg("from request")

	entry := logEntry(t, &buf)
	assert.Equal(t, "req-value", entry["req-key"])
}

func TestFromRequest_BareRequestNotNil(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotNil(t, FromRequest(req))
}
