package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerGatesBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Debug("ignored %d", 1)
	l.Info("ignored %d", 2)
	l.Warn("kept %d", 3)
	l.Error("kept %d", 4)

	out := buf.String()
	require.NotContains(t, out, "ignored")
	require.Equal(t, 2, strings.Count(out, "kept"))
}

func TestDebugLevelEmitsDebugAndInfoLevelHidesIt(t *testing.T) {
	var buf bytes.Buffer
	debugLogger := New(&buf, Debug)
	debugLogger.Debug("hello")
	require.Contains(t, buf.String(), "[DEBUG] hello")

	buf.Reset()
	infoLogger := New(&buf, Info)
	infoLogger.Debug("hidden")
	require.Empty(t, buf.String())
}
