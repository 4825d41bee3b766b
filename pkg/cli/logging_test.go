package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waftester/bountyscout/pkg/jsonutil"
)

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogOptions{})

	logger.Debug("hidden")
	logger.Info("scan started", slog.Int("programs", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"scan started\"")
	assert.Contains(t, out, "programs=3")
}

func TestNewLogger_VerboseJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogOptions{Verbose: true, JSON: true})

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	logger.Debug("probe", slog.String("url", "https://a.test"))

	var rec map[string]any
	assert.NoError(t, jsonutil.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "https://a.test", rec["url"])
}
