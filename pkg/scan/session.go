package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
)

// Session owns the progress record of one scan. Every change goes
// through Update, which publishes the new snapshot to the dispatcher in
// the order the changes were made.
type Session struct {
	id         string
	dispatcher *dispatcher.Dispatcher
	now        func() time.Time

	// publish serializes apply-and-dispatch so observers see snapshots in
	// mutation order.
	publish sync.Mutex

	mu       sync.RWMutex
	progress model.Progress
	done     chan struct{}
	doneOnce sync.Once
}

func newSession(d *dispatcher.Dispatcher, now func() time.Time) *Session {
	id := uuid.NewString()
	started := now()
	return &Session{
		id:         id,
		dispatcher: d,
		now:        now,
		progress: model.Progress{
			SessionID: id,
			Status:    model.StatusIdle,
			StartedAt: started,
			UpdatedAt: started,
		},
		done: make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns a copy of the current progress.
func (s *Session) Snapshot() model.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress.Clone()
}

// Done is closed once the session reaches complete or error.
func (s *Session) Done() <-chan struct{} { return s.done }

// Update applies fn to the progress and publishes the result. Once the
// session is terminal, further updates are ignored and false is returned.
func (s *Session) Update(ctx context.Context, fn func(p *model.Progress)) bool {
	s.publish.Lock()
	defer s.publish.Unlock()

	s.mu.Lock()
	if s.progress.Status.IsTerminal() {
		s.mu.Unlock()
		return false
	}
	fn(&s.progress)
	s.progress.SessionID = s.id
	s.progress.UpdatedAt = s.now()
	snap := s.progress.Clone()
	s.mu.Unlock()

	_ = s.dispatcher.Dispatch(ctx, events.NewProgress(snap))
	if snap.Status.IsTerminal() {
		s.doneOnce.Do(func() { close(s.done) })
	}
	return true
}

// Emit publishes a non-progress event under the session's ordering.
func (s *Session) Emit(ctx context.Context, e events.Event) {
	s.publish.Lock()
	defer s.publish.Unlock()
	_ = s.dispatcher.Dispatch(ctx, e)
}

func (s *Session) base(t events.EventType) events.BaseEvent {
	return events.BaseEvent{Type: t, Time: s.now(), Scan: s.id}
}
