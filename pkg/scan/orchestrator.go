// Package scan runs the scan pipeline: fetch the program list, then for
// each program save it, replace its scope and probe and analyze every
// URL-shaped target, one at a time with fixed pauses in between.
//
// At most one scan runs at a time. Start returns once the program list
// is known; the pipeline continues in the background and reports through
// the Session.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waftester/bountyscout/pkg/analyzer"
	"github.com/waftester/bountyscout/pkg/catalog"
	"github.com/waftester/bountyscout/pkg/duration"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/output/dispatcher"
	"github.com/waftester/bountyscout/pkg/output/events"
	"github.com/waftester/bountyscout/pkg/probe"
	"github.com/waftester/bountyscout/pkg/ratelimit"
)

// Catalog lists programs and their scope.
type Catalog interface {
	FetchPrograms(ctx context.Context, creds model.Credentials, req catalog.Requirements, limit int) ([]model.RawProgram, error)
	FetchScope(ctx context.Context, creds model.Credentials, handle string, limit int, onPage func(count int)) []model.RawScope
}

// Prober checks one asset.
type Prober interface {
	Probe(ctx context.Context, asset string) model.ProbeResult
}

// Analyzer evaluates one asset. analyzer.ErrSkipped marks assets that
// were fetched but not analyzable.
type Analyzer interface {
	Analyze(ctx context.Context, asset string) (*model.Analysis, error)
}

// Store is the persistence the pipeline writes to.
type Store interface {
	UpsertProgram(ctx context.Context, p *model.Program) error
	ReplaceScope(ctx context.Context, handle string, targets []model.ScopeTarget) ([]model.ScopeTarget, error)
	URLTargets(ctx context.Context, handle string) ([]model.ScopeTarget, error)
	AddProbeResult(ctx context.Context, r *model.ProbeResult) error
	AddAnalysis(ctx context.Context, a *model.Analysis) error
}

// Request starts a scan.
type Request struct {
	Credentials  model.Credentials
	Limit        int
	ScopeLimit   int
	Requirements catalog.Requirements
}

// Orchestrator owns the busy guard and the current session.
type Orchestrator struct {
	catalog  Catalog
	store    Store
	prober   Prober
	analyzer Analyzer

	dispatcher   *dispatcher.Dispatcher
	logger       *slog.Logger
	programPacer *ratelimit.Pacer
	assetPacer   *ratelimit.Pacer
	baseCtx      context.Context
	now          func() time.Time

	busy    atomic.Bool
	running sync.WaitGroup

	mu      sync.RWMutex
	session *Session
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDispatcher routes progress and scan events.
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgramDelay sets the pause after each program (default 50ms).
func WithProgramDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.programPacer = ratelimit.NewPacer(d) }
}

// WithAssetDelay sets the pause after each probed target (default 1s).
func WithAssetDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.assetPacer = ratelimit.NewPacer(d) }
}

// WithBaseContext sets the context background pipelines run under.
// Cancelling it interrupts a running scan.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.baseCtx = ctx }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New wires an Orchestrator.
func New(cat Catalog, st Store, pr Prober, an Analyzer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:      cat,
		store:        st,
		prober:       pr,
		analyzer:     an,
		programPacer: ratelimit.NewPacer(duration.ProgramDelay),
		assetPacer:   ratelimit.NewPacer(duration.AssetDelay),
		baseCtx:      context.Background(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Progress returns the snapshot of the current or last scan, or the idle
// state when none has run.
func (o *Orchestrator) Progress() model.Progress {
	if s := o.Session(); s != nil {
		return s.Snapshot()
	}
	return model.IdleProgress()
}

// Session returns the current or last session, nil before the first scan.
func (o *Orchestrator) Session() *Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.session
}

// Busy reports whether a scan is running.
func (o *Orchestrator) Busy() bool { return o.busy.Load() }

// Wait blocks until the background pipeline, if any, has returned.
func (o *Orchestrator) Wait() { o.running.Wait() }

// Start fetches the program list and launches the pipeline. It returns
// the number of programs selected. Catalog failures end the session in
// the error state and are returned.
func (o *Orchestrator) Start(ctx context.Context, req Request) (int, error) {
	if !req.Credentials.Valid() {
		return 0, ErrMissingCredentials
	}
	if !o.busy.CompareAndSwap(false, true) {
		return 0, ErrScanInProgress
	}

	s := newSession(o.dispatcher, o.now)
	o.mu.Lock()
	o.session = s
	o.mu.Unlock()

	s.Update(ctx, func(p *model.Progress) {
		p.Status = model.StatusScanning
		p.Message = model.MessageFetchingPrograms
	})

	programs, err := o.catalog.FetchPrograms(ctx, req.Credentials, req.Requirements, req.Limit)
	if err != nil {
		o.logger.Error("program list fetch failed", slog.String("scan_id", s.ID()), slog.String("error", err.Error()))
		s.Emit(ctx, &events.ErrorEvent{BaseEvent: s.base(events.EventTypeError), Stage: events.StageCatalog, Message: err.Error(), Fatal: true})
		s.Update(ctx, func(p *model.Progress) {
			p.Status = model.StatusError
			p.Message = err.Error()
		})
		s.Emit(ctx, &events.CompleteEvent{BaseEvent: s.base(events.EventTypeComplete), Message: err.Error(), Errors: 1})
		o.busy.Store(false)
		return 0, err
	}

	total := len(programs)
	s.Update(ctx, func(p *model.Progress) {
		*p = model.Progress{
			Total:     total,
			Status:    model.StatusScanning,
			StartedAt: p.StartedAt,
		}
	})
	s.Emit(ctx, &events.StartEvent{
		BaseEvent: s.base(events.EventTypeStart),
		Programs:  total,
		Config: events.ScanConfig{
			Limit:      req.Limit,
			ScopeLimit: req.ScopeLimit,
			ProgramMs:  o.programPacer.Delay().Milliseconds(),
			AssetMs:    o.assetPacer.Delay().Milliseconds(),
		},
		Requirements: events.Requirements(req.Requirements),
	})
	o.logger.Info("scan started", slog.String("scan_id", s.ID()), slog.Int("programs", total))

	o.running.Add(1)
	go func() {
		defer o.running.Done()
		defer o.busy.Store(false)
		o.run(o.baseCtx, s, req, programs)
	}()
	return total, nil
}

// totals counts what a run did, for the completion event.
type totals struct {
	programs, targets, reachable, analyzed, good, errors int
}

func (o *Orchestrator) run(ctx context.Context, s *Session, req Request, programs []model.RawProgram) {
	started := o.now()
	var t totals

	for i, raw := range programs {
		if ctx.Err() != nil {
			break
		}
		o.processProgram(ctx, s, req, i, raw, &t)
		t.programs++
		if err := o.programPacer.Pause(ctx); err != nil {
			break
		}
	}

	// Shutdown must not swallow the terminal snapshot.
	final := context.WithoutCancel(ctx)
	complete := &events.CompleteEvent{
		BaseEvent:   s.base(events.EventTypeComplete),
		Success:     ctx.Err() == nil,
		Programs:    t.programs,
		Targets:     t.targets,
		Reachable:   t.reachable,
		Analyzed:    t.analyzed,
		GoodTargets: t.good,
		Errors:      t.errors,
		DurationSec: o.now().Sub(started).Seconds(),
	}
	if ctx.Err() != nil {
		complete.Message = "scan interrupted: " + ctx.Err().Error()
		s.Update(final, func(p *model.Progress) {
			p.Status = model.StatusError
			p.Message = complete.Message
		})
	} else {
		s.Update(final, func(p *model.Progress) { p.Status = model.StatusComplete })
	}
	s.Emit(final, complete)
	o.logger.Info("scan finished",
		slog.String("scan_id", s.ID()),
		slog.Bool("success", complete.Success),
		slog.Int("programs", t.programs),
		slog.Int("targets", t.targets),
		slog.Int("errors", t.errors))
}

// processProgram handles one program. Every failure is logged and ends
// work on this program only; progress always advances.
func (o *Orchestrator) processProgram(ctx context.Context, s *Session, req Request, index int, raw model.RawProgram, t *totals) {
	program := raw.Program()
	defer s.Update(ctx, func(p *model.Progress) {
		p.Current = index + 1
		p.Message = ""
		p.ClearScope()
	})

	if req.Requirements.Active() && !req.Requirements.Match(raw.Attributes) {
		// Already filtered during fetch; kept as a consistency check.
		o.logger.Debug("program no longer meets requirements", slog.String("handle", program.Handle))
	}

	s.Update(ctx, func(p *model.Progress) {
		p.Current = index
		p.CurrentProgram = program.DisplayName()
	})

	if err := o.store.UpsertProgram(ctx, &program); err != nil {
		o.fail(ctx, s, t, events.StageStore, program.Handle, "", err)
		return
	}

	zero := 0
	s.Update(ctx, func(p *model.Progress) {
		p.Message = model.MessageFetchingScope
		p.ScopeCount = &zero
	})
	rawScope := o.catalog.FetchScope(ctx, req.Credentials, program.Handle, req.ScopeLimit, func(count int) {
		s.Update(ctx, func(p *model.Progress) { p.ScopeCount = &count })
	})
	if len(rawScope) == 0 {
		o.logger.Debug("no scope targets", slog.String("handle", program.Handle))
		return
	}

	targets := make([]model.ScopeTarget, len(rawScope))
	for i, rs := range rawScope {
		targets[i] = rs.Target(program.Handle)
	}
	if _, err := o.store.ReplaceScope(ctx, program.Handle, targets); err != nil {
		o.fail(ctx, s, t, events.StageStore, program.Handle, "", err)
		return
	}

	s.Update(ctx, func(p *model.Progress) { p.Message = model.MessageTestingTargets })
	urls, err := o.store.URLTargets(ctx, program.Handle)
	if err != nil {
		o.fail(ctx, s, t, events.StageStore, program.Handle, "", err)
		return
	}
	s.Update(ctx, func(p *model.Progress) { p.TotalScopeTargets = len(urls) })

	for j, target := range urls {
		if ctx.Err() != nil {
			return
		}
		s.Update(ctx, func(p *model.Progress) {
			p.Message = model.MessageTestingTarget
			p.CurrentScopeTarget = &target.Target
			p.CurrentScopeTargetNumber = j + 1
		})
		o.processTarget(ctx, s, program.Handle, target, t)
		if err := o.assetPacer.Pause(ctx); err != nil {
			return
		}
	}
}

// processTarget probes and analyzes one scope target and persists both.
func (o *Orchestrator) processTarget(ctx context.Context, s *Session, handle string, target model.ScopeTarget, t *totals) {
	t.targets++
	started := o.now()

	result := o.prober.Probe(ctx, target.Target)
	result.ScopeTargetID = target.ID
	if err := o.store.AddProbeResult(ctx, &result); err != nil {
		o.fail(ctx, s, t, events.StageStore, handle, target.Target, err)
	}
	if result.StatusCode != nil {
		t.reachable++
	}

	ev := &events.TargetEvent{
		Program: handle,
		Target:  target.Target,
		URL:     probe.NormalizeURL(target.Target),
		Probe: events.Probe{
			StatusCode:        result.StatusCode,
			HasAuthIndicators: result.HasAuthIndicators,
			BodyHash:          result.BodyHash,
		},
	}

	analysis, err := o.analyzer.Analyze(ctx, target.Target)
	switch {
	case errors.Is(err, analyzer.ErrSkipped):
		o.logger.Debug("analysis skipped", slog.String("target", target.Target), slog.String("reason", err.Error()))
	case err != nil:
		o.fail(ctx, s, t, events.StageAnalysis, handle, target.Target, err)
	default:
		analysis.ScopeTargetID = target.ID
		if err := o.store.AddAnalysis(ctx, analysis); err != nil {
			o.fail(ctx, s, t, events.StageStore, handle, target.Target, err)
		}
		t.analyzed++
		if analysis.GoodReflectedStored || analysis.GoodDOM {
			t.good++
		}
		ev.Analysis = &events.Rating{
			ReflectedStoredScore: analysis.ReflectedStoredScore,
			GoodReflectedStored:  analysis.GoodReflectedStored,
			DOMScore:             analysis.DOMScore,
			GoodDOM:              analysis.GoodDOM,
			Frameworks:           analysis.Frameworks,
		}
	}

	ev.LatencyMs = float64(o.now().Sub(started)) / float64(time.Millisecond)
	ev.BaseEvent = s.base(events.EventTypeTarget)
	s.Emit(ctx, ev)
}

func (o *Orchestrator) fail(ctx context.Context, s *Session, t *totals, stage events.Stage, program, target string, err error) {
	t.errors++
	o.logger.Warn("scan step failed",
		slog.String("scan_id", s.ID()),
		slog.String("stage", string(stage)),
		slog.String("program", program),
		slog.String("target", target),
		slog.String("error", err.Error()))
	s.Emit(ctx, &events.ErrorEvent{
		BaseEvent: s.base(events.EventTypeError),
		Stage:     stage,
		Program:   program,
		Target:    target,
		Message:   err.Error(),
	})
}
