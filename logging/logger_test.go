package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*EngineLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func TestEngineLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible warn")
	l.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
}

func TestEngineLogger_ContextualAttrs(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	l.WithComponent("planner").
		WithSession("u1", "s1").
		WithContext("correlation_id", "c-42").
		Info("planned %d workflows", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "planned 2 workflows", entry["msg"])
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "c-42", entry["correlation_id"])
}

func TestEngineLogger_CloneDoesNotLeak(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	derived := l.WithComponent("executor")
	l.Info("from base")
	derived.Info("from derived")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "executor")
	assert.Contains(t, lines[1], "executor")
}

func TestEngineLogger_DomainHelpers(t *testing.T) {
	l, buf := newBufferedLogger(LogLevelInfo)

	l.LogOracleCall("openai", 120*time.Millisecond, true, nil)
	l.LogCapabilityCall("routing", "plan_route", 5*time.Millisecond, false, errors.New("no drivers"))
	l.LogBatchCycle(10, 3, time.Second, nil)

	out := buf.String()
	assert.Contains(t, out, "Oracle call completed")
	assert.Contains(t, out, "Capability invocation failed")
	assert.Contains(t, out, "no drivers")
	assert.Contains(t, out, "Batch cycle completed")
}

func TestSlogAdapterAndNoOpSatisfyLogger(t *testing.T) {
	var _ Logger = NewDefaultSlogLogger()
	var _ Logger = NoOpLogger{}
	var _ Logger = (*EngineLogger)(nil)
}
