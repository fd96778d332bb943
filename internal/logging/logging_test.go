package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warn, "WARN"},
		{Error, "ERROR"},
		{Fatal, "FATAL"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", Debug},
		{"DEBUG", Debug},
		{"warn", Warn},
		{"warning", Warn},
		{"error", Error},
		{"fatal", Fatal},
		{"", Info},
		{"nonsense", Info},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseLevel(tt.in), "parsing %q", tt.in)
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Infof(nil, "this should not appear")
	require.Empty(t, buf.String())

	l.Warnf(nil, "this should appear")
	require.Contains(t, buf.String(), "this should appear")
}

func TestLogger_IncludesSeverityTagAndModule(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug).Module("builder")

	l.Errorf(Fields{"addr": "0x1000"}, "parse diverged")

	out := buf.String()
	require.Contains(t, out, "🔴")
	require.Contains(t, out, "ERROR")
	require.Contains(t, out, "[builder]")
	require.Contains(t, out, "parse diverged")
	require.Contains(t, out, "addr=0x1000")
}

func TestLogger_FieldsAreSortedForDeterminism(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)

	l.Infof(Fields{"z": 1, "a": 2, "m": 3}, "msg")

	out := buf.String()
	require.True(t, strings.Index(out, "a=2") < strings.Index(out, "m=3"))
	require.True(t, strings.Index(out, "m=3") < strings.Index(out, "z=1"))
}

func TestDefaultLogger_SetAndGet(t *testing.T) {
	var buf bytes.Buffer
	custom := New(&buf, Debug)

	SetDefault(custom)
	require.Same(t, custom, Default())

	Default().Infof(nil, "hello")
	require.Contains(t, buf.String(), "hello")
}

func TestLogger_ConcurrentWritesDoNotRace(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			l.Infof(Fields{"worker": n}, "tick")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	require.Equal(t, 8, strings.Count(buf.String(), "tick"))
}
