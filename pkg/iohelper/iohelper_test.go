package iohelper

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBody_NilReader(t *testing.T) {
	body, err := ReadBody(nil, APIMaxBodySize)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestReadBody_Limit(t *testing.T) {
	body, err := ReadBody(strings.NewReader("0123456789"), 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}

type failingReader struct{ sent bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.sent {
		return 0, errors.New("boom")
	}
	f.sent = true
	return copy(p, "partial"), nil
}

func TestReadPage_LogsAndReturnsPartial(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	body := ReadPage(&failingReader{}, logger)
	assert.Equal(t, "partial", string(body))
	assert.Contains(t, logs.String(), "body read failed")
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	assert.NoError(t, DrainAndClose(nil))

	rc := &closeTracker{Reader: strings.NewReader("leftover")}
	assert.NoError(t, DrainAndClose(rc))
	assert.True(t, rc.closed)
}
