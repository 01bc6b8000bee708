package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Source names used in errors, logs, and metric labels.
const (
	SourceTopology = "topology"
	SourceAlarms   = "alarms"
	SourceBrigades = "brigades"
)

var (
	// ErrNotLoaded is returned while the initial load is still running.
	ErrNotLoaded = errors.New("data sources are still loading")

	// ErrInvalidMonth is returned for months outside 1-12.
	ErrInvalidMonth = errors.New("month must be between 1 and 12")

	// ErrAlreadyLoaded is returned when Load runs a second time.
	ErrAlreadyLoaded = errors.New("data sources already loaded")
)

// LoadError reports which source failed during the initial load.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// SourceLoader reads the three dashboard sources.
type SourceLoader interface {
	LoadTopology(ctx context.Context) (domain.Topology, error)
	LoadAlarms(ctx context.Context) ([]domain.Alarm, error)
	LoadBrigades(ctx context.Context) ([]domain.Brigade, error)
}

// Renderer receives every summary produced by a selection change.
type Renderer interface {
	Render(ctx context.Context, summary Summary) error
}

// Settings configures a Pipeline.
type Settings struct {
	InitialMonth int
	Limits       Limits
	CacheSize    int
}

// Pipeline holds the loaded snapshot and the current selection and runs a
// full recompute cycle whenever the selection changes.
type Pipeline struct {
	loader    SourceLoader
	renderers []Renderer
	logger    *slog.Logger
	metrics   *observability.Metrics
	limits    Limits
	cache     *summaryCache

	started atomic.Bool

	// cycleMu serializes recompute cycles so renderers see them in order.
	cycleMu sync.Mutex

	mu        sync.RWMutex
	status    Status
	loadErr   error
	snapshot  *Snapshot
	selection domain.Selection
	current   Summary
}

// New creates a Pipeline in the loading state.
func New(loader SourceLoader, logger *slog.Logger, metrics *observability.Metrics, settings Settings, renderers ...Renderer) *Pipeline {
	month := settings.InitialMonth
	if month < 1 || month > 12 {
		month = 1
	}
	return &Pipeline{
		loader:    loader,
		renderers: renderers,
		logger:    logger,
		metrics:   metrics,
		limits:    settings.Limits,
		cache:     newSummaryCache(settings.CacheSize),
		status:    StatusLoading,
		selection: domain.Selection{Month: month},
	}
}

// Load reads all three sources concurrently and, once every one has
// succeeded, runs the first recompute cycle. If any source fails the
// pipeline enters StatusFailed for good and the *LoadError is returned.
func (p *Pipeline) Load(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	p.logger.Info("loading data sources")
	p.metrics.Status.Set(float64(StatusLoading))
	start := clock.Now()

	var (
		topo     domain.Topology
		alarms   []domain.Alarm
		brigades []domain.Brigade
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := p.loader.LoadTopology(gctx)
		if err != nil {
			return &LoadError{Source: SourceTopology, Err: err}
		}
		topo = t
		p.metrics.RecordsLoaded.WithLabelValues(SourceTopology).Set(float64(t.Len()))
		return nil
	})
	g.Go(func() error {
		a, err := p.loader.LoadAlarms(gctx)
		if err != nil {
			return &LoadError{Source: SourceAlarms, Err: err}
		}
		alarms = a
		p.metrics.RecordsLoaded.WithLabelValues(SourceAlarms).Set(float64(len(a)))
		return nil
	})
	g.Go(func() error {
		b, err := p.loader.LoadBrigades(gctx)
		if err != nil {
			return &LoadError{Source: SourceBrigades, Err: err}
		}
		brigades = b
		p.metrics.RecordsLoaded.WithLabelValues(SourceBrigades).Set(float64(len(b)))
		return nil
	})

	if err := g.Wait(); err != nil {
		p.fail(err)
		return err
	}

	snap := &Snapshot{
		Topology: topo,
		Alarms:   alarms,
		Brigades: brigades,
		LoadedAt: clock.Now(),
	}

	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.mu.Lock()
	p.snapshot = snap
	p.status = StatusReady
	sel := p.selection
	p.mu.Unlock()

	p.metrics.Status.Set(float64(StatusReady))
	p.logger.Info("data sources loaded",
		"districts", topo.Len(),
		"alarms", len(alarms),
		"brigades", len(brigades),
		"duration", clock.Since(start),
	)

	p.runCycle(ctx, snap, sel)
	return nil
}

func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.status = StatusFailed
	p.loadErr = err
	p.mu.Unlock()

	source := "unknown"
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		source = loadErr.Source
	}
	p.metrics.LoadFailures.WithLabelValues(source).Inc()
	p.metrics.Status.Set(float64(StatusFailed))
	p.logger.Error("loading data sources failed", "source", source, "error", err)
}

// Status reports the load state and, when failed, the load error.
func (p *Pipeline) Status() (Status, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, p.loadErr
}

// CheckReadiness returns nil once the sources are loaded, or an error
// describing why the service is not ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	status, err := p.Status()
	switch status {
	case StatusReady:
		return nil
	case StatusFailed:
		return err
	default:
		return ErrNotLoaded
	}
}

// Selection returns the current selection.
func (p *Pipeline) Selection() domain.Selection {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selection
}

// Current returns the summary of the latest cycle.
func (p *Pipeline) Current() (Summary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.readyLocked(); err != nil {
		return Summary{}, err
	}
	return p.current, nil
}

// SetMonth selects a month and recomputes.
func (p *Pipeline) SetMonth(ctx context.Context, month int) (Summary, error) {
	if month < 1 || month > 12 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	return p.update(ctx, func(sel domain.Selection) domain.Selection {
		sel.Month = month
		return sel
	})
}

// SetDistrict selects a district and recomputes. An empty name clears it.
func (p *Pipeline) SetDistrict(ctx context.Context, district string) (Summary, error) {
	return p.update(ctx, func(sel domain.Selection) domain.Selection {
		sel.District = district
		return sel
	})
}

// ResetDistrict clears the district filter and recomputes.
func (p *Pipeline) ResetDistrict(ctx context.Context) (Summary, error) {
	return p.SetDistrict(ctx, "")
}

// SetSelection replaces the whole selection and recomputes.
func (p *Pipeline) SetSelection(ctx context.Context, sel domain.Selection) (Summary, error) {
	if !sel.ValidMonth() {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidMonth, sel.Month)
	}
	return p.update(ctx, func(domain.Selection) domain.Selection { return sel })
}

// update applies change to the selection and runs a full cycle. Before the
// load completes the selection is stored and ErrNotLoaded returned; the first
// cycle after loading then uses it.
func (p *Pipeline) update(ctx context.Context, change func(domain.Selection) domain.Selection) (Summary, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	p.mu.Lock()
	p.selection = change(p.selection)
	sel := p.selection
	snap := p.snapshot
	err := p.readyLocked()
	p.mu.Unlock()

	if err != nil {
		return Summary{}, err
	}
	return p.runCycle(ctx, snap, sel), nil
}

// Query computes the summary for sel without changing the current selection.
// Snapshots never change after loading, so results are cached per selection.
func (p *Pipeline) Query(_ context.Context, sel domain.Selection) (Summary, error) {
	if !sel.ValidMonth() {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidMonth, sel.Month)
	}

	p.mu.RLock()
	snap := p.snapshot
	err := p.readyLocked()
	p.mu.RUnlock()
	if err != nil {
		return Summary{}, err
	}

	if s, ok := p.cache.get(sel.Key()); ok {
		p.metrics.SummaryCache.WithLabelValues("hit").Inc()
		return s, nil
	}
	p.metrics.SummaryCache.WithLabelValues("miss").Inc()

	s := p.compute(snap, sel)
	p.cache.put(sel.Key(), s)
	return s, nil
}

func (p *Pipeline) readyLocked() error {
	switch p.status {
	case StatusReady:
		return nil
	case StatusFailed:
		return p.loadErr
	default:
		return ErrNotLoaded
	}
}

// runCycle recomputes, publishes the summary as current, and hands it to the
// renderers. Callers hold cycleMu.
func (p *Pipeline) runCycle(ctx context.Context, snap *Snapshot, sel domain.Selection) Summary {
	s := p.compute(snap, sel)
	p.cache.put(sel.Key(), s)

	p.mu.Lock()
	p.current = s
	p.mu.Unlock()

	p.metrics.FilteredAlarms.Set(float64(len(s.FilteredAlarms)))
	p.metrics.UnmappedAlarms.Set(float64(s.UnmappedAlarms))
	p.logger.Debug("summary recomputed",
		"cycle_id", s.CycleID,
		"month", sel.Month,
		"district", sel.Label(),
		"alarms", len(s.FilteredAlarms),
		"brigades", s.BrigadeCount,
	)

	// A caller that goes away after the recompute must not cancel delivery of
	// a summary that is already current.
	rctx := context.WithoutCancel(ctx)
	for _, r := range p.renderers {
		if err := r.Render(rctx, s); err != nil {
			p.metrics.RenderErrors.Inc()
			p.logger.Warn("render summary failed", "cycle_id", s.CycleID, "error", err)
		}
	}
	return s
}

func (p *Pipeline) compute(snap *Snapshot, sel domain.Selection) Summary {
	start := clock.Now()
	s := Recompute(snap, sel, p.limits)
	s.CycleID = uuid.NewString()
	s.ComputedAt = clock.Now()

	p.metrics.Recomputations.Inc()
	p.metrics.RecomputeDuration.Observe(clock.Since(start).Seconds())
	return s
}
