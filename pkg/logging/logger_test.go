package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestWithContext_AddsRequestAndUser(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(Config{Format: "json", Component: "api"}, &buf)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "usr-1")
	ctx = WithLocationID(ctx, "loc-1")
	l.WithContext(ctx).Info("hello")

	m := decodeLine(t, &buf)
	assert.Equal(t, "api", m["component"])
	assert.Equal(t, "req-1", m["request_id"])
	assert.Equal(t, "usr-1", m["user_id"])
	assert.Equal(t, "loc-1", m["location_id"])
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestHTTPRequestLog_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(Config{Format: "json"}, &buf)

	l.HTTPRequestLog(context.Background(), "GET", "/health", 503, 2*time.Millisecond, "127.0.0.1")

	m := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", m["level"])
	assert.Equal(t, float64(503), m["status"])
	assert.Equal(t, "/health", m["path"])
}

func TestDBQueryLog_DebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(Config{Format: "json", Level: "info"}, &buf)

	l.DBQueryLog(context.Background(), "find", "locations", time.Millisecond, nil)
	assert.Zero(t, buf.Len())

	l.DBQueryLog(context.Background(), "insert", "reviews", time.Millisecond, errors.New("write conflict"))
	m := decodeLine(t, &buf)
	assert.Equal(t, "write conflict", m["error"])
	assert.Equal(t, "reviews", m["collection"])
}
