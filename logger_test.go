package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"quiet", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.input), "input %q", tt.input)
	}
}

func TestLeveledLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LevelWarn, &buf)

	log.Debugf("d %d", 1)
	log.Infof("i %d", 2)
	log.Warnf("w %d", 3)
	log.Errorf("e %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "DEBUG")
	assert.NotContains(t, out, "INFO")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "w 3")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "e 4")
}

func TestLeveledLoggerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LevelInfo, &buf)

	log.Infof("hello %s", "world")

	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}\.\d{3} INFO  hello world\n$`, buf.String())
	// Buffers are not terminals, so nothing gets colored.
	assert.NotContains(t, buf.String(), "\x1b")
}

var (
	_ Logger = (*LeveledLogger)(nil)
	_ Logger = NopLogger{}
)
