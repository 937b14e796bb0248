package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cdptour/internal/ctxkeys"
	"cdptour/internal/logger"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	gormlogger "gorm.io/gorm/logger"
)

func lastLine(buf *bytes.Buffer) gjson.Result {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	return gjson.Parse(lines[len(lines)-1])
}

func TestGormLoggerFormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(logger.NewWithWriter(&buf, zerolog.DebugLevel)).LogMode(gormlogger.Info)
	ctx := ctxkeys.WithTraceID(context.Background(), "run-1")

	l.Warn(ctx, "failed to parse %s as %d", "abc", 42)
	line := lastLine(&buf)
	assert.Equal(t, "failed to parse abc as 42", line.Get("message").String())
	assert.Equal(t, "run-1", line.Get("runID").String())
	assert.Equal(t, "warn", line.Get("level").String())

	l.Info(ctx, "plain")
	assert.Equal(t, "plain", lastLine(&buf).Get("message").String())
}

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(logger.NewWithWriter(&buf, zerolog.DebugLevel))
	ctx := ctxkeys.WithTraceID(context.Background(), "run-2")
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, nil)
	assert.Empty(t, buf.String(), "fast queries stay quiet at warn level")

	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	line := lastLine(&buf)
	assert.Equal(t, "SELECT 1", line.Get("sql").String())
	assert.Equal(t, "run-2", line.Get("runID").String())

	l.Trace(ctx, time.Now(), fc, errors.New("disk I/O error"))
	line = lastLine(&buf)
	require.Equal(t, "error", line.Get("level").String())
	assert.Contains(t, line.Raw, "disk I/O error")
}
