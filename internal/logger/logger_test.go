package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Info("Runner", "hidden stage=%d", 1)
	l.Warn("Runner", "eviction failed table=%s", "conta")
	l.Error("", "no component")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] [Runner] eviction failed table=conta")
	assert.Contains(t, out, "[ERROR] no component")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelError, &buf)
	l.SetLogLevel(LevelDebug)
	l.Debug("Decoder", "encoding=%s", "utf-8")
	assert.Contains(t, buf.String(), "[DEBUG] [Decoder] encoding=utf-8")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "INFO", LevelInfo.String())
}
