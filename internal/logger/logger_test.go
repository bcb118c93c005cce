package logger

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObserver(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core)
	t.Cleanup(func() { Logger = prev })
	return logs
}

func TestError_AttachesErr(t *testing.T) {
	logs := withObserver(t)

	Error("сбой", errors.New("boom"), zap.Int64("task_id", 7))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, int64(7), ctx["task_id"])
}

func TestError_NilErr(t *testing.T) {
	logs := withObserver(t)

	Error("без ошибки", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	_, ok := entries[0].ContextMap()["error"]
	assert.False(t, ok)
}

func TestHttpRequestInfo(t *testing.T) {
	logs := withObserver(t)
	r := httptest.NewRequest("GET", "/guilds/1/tasks?archived=true", nil)

	HttpRequestInfo(r, "запрос")

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "GET", ctx["method"])
	assert.Equal(t, "/guilds/1/tasks", ctx["path"])
	assert.Equal(t, "archived=true", ctx["query"])
}

func TestInit_BadLevel(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	assert.Error(t, Init(false, "loud"))
	assert.NoError(t, Init(true, "debug"))
}
