package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
)

func TestSession_TerminalGuard(t *testing.T) {
	rec := &recorder{}
	d := dispatcher.New(dispatcher.Config{Logger: quiet()})
	d.RegisterHook(rec)
	s := newSession(d, time.Now)
	ctx := context.Background()

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, model.StatusIdle, s.Snapshot().Status)

	assert.True(t, s.Update(ctx, func(p *model.Progress) { p.Status = model.StatusScanning }))
	assert.True(t, s.Update(ctx, func(p *model.Progress) { p.Status = model.StatusComplete }))

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed after terminal update")
	}

	assert.False(t, s.Update(ctx, func(p *model.Progress) { p.Status = model.StatusScanning }))
	assert.Equal(t, model.StatusComplete, s.Snapshot().Status)
	assert.Len(t, rec.progress(), 2)
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := newSession(nil, time.Now)
	target := "https://a.example"
	s.Update(context.Background(), func(p *model.Progress) { p.CurrentScopeTarget = &target })

	snap := s.Snapshot()
	*snap.CurrentScopeTarget = "changed"
	assert.Equal(t, "https://a.example", *s.Snapshot().CurrentScopeTarget)
	assert.Equal(t, s.ID(), snap.SessionID)
}

func TestSession_ConcurrentReadersSeeOrderedUpdates(t *testing.T) {
	rec := &recorder{}
	d := dispatcher.New(dispatcher.Config{Logger: quiet()})
	d.RegisterHook(rec)
	s := newSession(d, time.Now)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Snapshot()
		}
	}()
	for i := 1; i <= 50; i++ {
		s.Update(ctx, func(p *model.Progress) { p.Current = i })
	}
	wg.Wait()

	snaps := rec.progress()
	require.Len(t, snaps, 50)
	for i, p := range snaps {
		assert.Equal(t, i+1, p.Current)
	}
}
