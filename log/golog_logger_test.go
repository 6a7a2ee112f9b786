package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
)

func TestNewGologLogger(t *testing.T) {
	logger := NewGologLogger(golog.New())

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestNewGologLogger_NilUsesDefault(t *testing.T) {
	logger := NewGologLogger(nil)
	assert.NotNil(t, logger)
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger := NewGologLogger(golog.New())

	for _, level := range []LogLevel{LogLevelDebug, LogLevelWarn, LogLevelError, LogLevelNone} {
		logger.SetLevel(level)
		assert.Equal(t, level, logger.GetLevel())
	}
}

func TestGologLogger_FormatsMessages(t *testing.T) {
	var buf bytes.Buffer
	glogger := golog.New()
	glogger.SetOutput(&buf)
	glogger.SetTimeFormat("")

	logger := NewGologLogger(glogger)
	logger.SetLevel(LogLevelDebug)

	logger.Info("retrieved %d documents", 4)
	logger.Debug("preview: %s", "abc")

	assert.Contains(t, buf.String(), "retrieved 4 documents")
	assert.Contains(t, buf.String(), "preview: abc")
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	glogger := golog.New()
	glogger.SetOutput(&buf)

	logger := NewGologLogger(glogger)
	logger.SetLevel(LogLevelError)

	logger.Info("filtered")
	logger.Warn("filtered")
	logger.Error("kept")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "kept")
}
