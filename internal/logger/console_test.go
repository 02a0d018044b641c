package logger

import (
	"bytes"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePattern = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] \[(TRACE|DEBUG|INFO|WARN|ERROR)\] .+\n$`)

func TestConsoleLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	log.LogInfo("catalog loaded")
	assert.Regexp(t, linePattern, buf.String())
	assert.Contains(t, buf.String(), "[INFO] catalog loaded")
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		expected []string
		filtered []string
	}{
		{"trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}, nil},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}, []string{"TRACE"}},
		{"info", []string{"INFO", "WARN", "ERROR"}, []string{"TRACE", "DEBUG"}},
		{"warn", []string{"WARN", "ERROR"}, []string{"TRACE", "DEBUG", "INFO"}},
		{"error", []string{"ERROR"}, []string{"TRACE", "DEBUG", "INFO", "WARN"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewConsoleLogger(&buf, tt.level)

			log.LogTrace("m")
			log.LogDebug("m")
			log.LogInfo("m")
			log.LogWarn("m")
			log.LogError("m")

			out := buf.String()
			for _, level := range tt.expected {
				assert.Contains(t, out, "["+level+"]", "level %s should pass the %s filter", level, tt.level)
			}
			for _, level := range tt.filtered {
				assert.NotContains(t, out, "["+level+"]", "level %s should be filtered at %s", level, tt.level)
			}
		})
	}
}

func TestConsoleLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "verbose")

	log.LogDebug("hidden")
	log.LogInfo("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestConsoleLogger_NilWriter(t *testing.T) {
	log := NewConsoleLogger(nil, "info")
	// Must not panic.
	log.LogInfo("discarded")
	log.LogSessionComplete(3, 2, time.Second)
}

func TestConsoleLogger_SessionComplete(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	log.LogSessionComplete(9, 4, 95*time.Second)

	out := buf.String()
	assert.Contains(t, out, "Session complete: 9 questions answered, 4 outcomes (1m35s)")

	buf.Reset()
	NewConsoleLogger(&buf, "error").LogSessionComplete(9, 4, time.Second)
	assert.Empty(t, buf.String(), "session summary is info-level")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
		{500 * time.Millisecond, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d), tt.d.String())
	}
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.LogInfo("concurrent message")
			}
		}()
	}
	wg.Wait()

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	require.Equal(t, 500, lines)
}
