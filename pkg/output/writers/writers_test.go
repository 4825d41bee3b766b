package writers

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/jsonutil"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/events"
)

func target(rs, dom int, goodRS, goodDOM bool) *events.TargetEvent {
	return &events.TargetEvent{
		BaseEvent: events.NewBase(events.EventTypeTarget, "s"),
		URL:       "https://acme.com",
		Analysis:  &events.Rating{ReflectedStoredScore: rs, GoodReflectedStored: goodRS, DOMScore: dom, GoodDOM: goodDOM},
	}
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, jsonutil.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestJSONLWriter_OneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, JSONLOptions{})

	require.NoError(t, w.Write(events.NewProgress(model.Progress{SessionID: "s", Total: 3})))
	require.NoError(t, w.Write(target(95, 10, true, false)))
	require.NoError(t, w.Write(&events.CompleteEvent{BaseEvent: events.NewBase(events.EventTypeComplete, "s"), Success: true}))
	require.NoError(t, w.Flush())

	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	got := lines(t, &buf)
	require.Len(t, got, 3)
	assert.Equal(t, "progress", got[0]["type"])
	assert.Equal(t, "target", got[1]["type"])
	assert.Equal(t, "complete", got[2]["type"])
	assert.Equal(t, "s", got[2]["scan_id"])
}

func TestJSONLWriter_Filters(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, JSONLOptions{OmitProgress: true, OnlyGood: true})

	assert.False(t, w.SupportsEvent(events.EventTypeProgress))
	assert.True(t, w.SupportsEvent(events.EventTypeTarget))

	require.NoError(t, w.Write(target(30, 20, false, false)))
	require.NoError(t, w.Write(target(30, 60, false, true)))
	require.NoError(t, w.Write(&events.TargetEvent{BaseEvent: events.NewBase(events.EventTypeTarget, "s")}))

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, float64(60), got[0]["analysis"].(map[string]any)["dom_score"])
}

func TestJSONLWriter_ClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := NewJSONLWriter(f, JSONLOptions{})
	require.NoError(t, w.Write(target(1, 1, false, false)))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"url":"https://acme.com"`)
	assert.Error(t, f.Close())
}
