package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/alarm-dashboard-service/internal/domain"
	"github.com/couchcryptid/alarm-dashboard-service/internal/observability"
	"github.com/couchcryptid/alarm-dashboard-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	topology domain.Topology
	alarms   []domain.Alarm
	brigades []domain.Brigade

	topologyErr error
	alarmsErr   error
	brigadesErr error

	// gate, when set, holds LoadAlarms until closed.
	gate chan struct{}
}

func (m *mockLoader) LoadTopology(_ context.Context) (domain.Topology, error) {
	return m.topology, m.topologyErr
}

func (m *mockLoader) LoadAlarms(ctx context.Context) ([]domain.Alarm, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.alarms, m.alarmsErr
}

func (m *mockLoader) LoadBrigades(_ context.Context) ([]domain.Brigade, error) {
	return m.brigades, m.brigadesErr
}

type mockRenderer struct {
	mu        sync.Mutex
	summaries []pipeline.Summary
	err       error
}

func (m *mockRenderer) Render(_ context.Context, s pipeline.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return m.err
}

func (m *mockRenderer) rendered() []pipeline.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pipeline.Summary, len(m.summaries))
	copy(out, m.summaries)
	return out
}

// --- fixtures ---

var cal = domain.DefaultCalendar()

func intPtr(v int) *int { return &v }

func testAlarm(id int, district, alarmType string, start domain.Instant, minutes int) domain.Alarm {
	return domain.Alarm{
		AlarmID:    id,
		District:   district,
		AlarmType:  alarmType,
		AlarmStart: start,
		AlarmEnd:   domain.InstantOf(start.Time().Add(time.Duration(minutes) * time.Minute)),
	}
}

func testBrigade(id int, name string, start domain.Instant, alarmNr *int) domain.Brigade {
	return domain.Brigade{
		BrigadeID: id,
		Name:      name,
		CallStart: start,
		CallEnd:   domain.InstantOf(start.Time().Add(30 * time.Minute)),
		AlarmNr:   alarmNr,
	}
}

func newTestLoader() *mockLoader {
	return &mockLoader{
		topology: domain.NewTopology([]string{"Linz-Land", "Wels-Land", "Steyr-Land"}),
		alarms: []domain.Alarm{
			testAlarm(1, "Linz-Land", "Brand", cal.Date(2020, time.January, 3, 8, 0), 90),
			testAlarm(2, "Linz-Land", "Technisch", cal.Date(2020, time.January, 3, 10, 0), 30),
			testAlarm(3, "Wels-Land", "Brand", cal.Date(2020, time.January, 5, 12, 0), 60),
			testAlarm(4, "Atlantis", "Brand", cal.Date(2020, time.January, 7, 18, 0), 30),
			testAlarm(5, "Linz-Land", "Brand", cal.Date(2020, time.February, 2, 9, 0), 45),
		},
		brigades: []domain.Brigade{
			testBrigade(100, "BF Linz-Land", cal.Date(2020, time.January, 3, 8, 5), intPtr(1)),
			testBrigade(101, "BF Linz-Land", cal.Date(2020, time.January, 3, 10, 5), intPtr(2)),
			testBrigade(102, "FF Wels-Land", cal.Date(2020, time.January, 5, 12, 5), intPtr(3)),
			testBrigade(103, "FF Unlinked", cal.Date(2020, time.January, 9, 7, 0), nil),
			testBrigade(104, "BF Linz-Land", cal.Date(2020, time.February, 2, 9, 5), intPtr(5)),
		},
	}
}

func newTestPipeline(loader pipeline.SourceLoader, renderers ...pipeline.Renderer) *pipeline.Pipeline {
	settings := pipeline.Settings{
		InitialMonth: 1,
		Limits:       pipeline.DefaultLimits(),
		CacheSize:    8,
	}
	return newTestPipelineWith(loader, settings, renderers...)
}

func newTestPipelineWith(loader pipeline.SourceLoader, settings pipeline.Settings, renderers ...pipeline.Renderer) *pipeline.Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.New(loader, logger, observability.NewMetricsForTesting(), settings, renderers...)
}

func alarmIDs(alarms []domain.Alarm) []int {
	ids := make([]int, len(alarms))
	for i, a := range alarms {
		ids[i] = a.AlarmID
	}
	return ids
}

// --- load ---

func TestPipeline_Load_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	pipeline.SetClock(fakeClock)
	t.Cleanup(func() {
		pipeline.SetClock(nil)
	})

	renderer := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)

	require.NoError(t, p.Load(context.Background()))

	status, err := p.Status()
	assert.Equal(t, pipeline.StatusReady, status)
	require.NoError(t, err)
	require.NoError(t, p.CheckReadiness(context.Background()))

	s, err := p.Current()
	require.NoError(t, err)

	assert.Equal(t, domain.Selection{Month: 1}, s.Selection)
	assert.Equal(t, "alle", s.DistrictLabel)
	assert.Equal(t, []int{1, 2, 3, 4}, alarmIDs(s.FilteredAlarms))
	assert.Equal(t, 4, s.BrigadeCount)
	assert.NotEmpty(t, s.CycleID)
	assert.Equal(t, fakeClock.Now(), s.ComputedAt)

	assert.Equal(t, []domain.DistrictCount{
		{District: "Linz-Land", Count: 2},
		{District: "Wels-Land", Count: 1},
		{District: "Atlantis", Count: 1},
	}, s.DistrictCounts)
	assert.Equal(t, []domain.DistrictCount{
		{District: "Linz-Land", Count: 2},
		{District: "Wels-Land", Count: 1},
		{District: "Steyr-Land", Count: 0},
	}, s.Choropleth)
	assert.Equal(t, 1, s.UnmappedAlarms)
	assert.Equal(t, domain.ColorDomain{Min: 1, Max: 2}, s.ColorDomain)
	assert.Len(t, s.DistrictAlarms["Linz-Land"], 2)

	assert.Equal(t, []domain.KeyValue{
		{Key: "Brand", Value: 3},
		{Key: "Technisch", Value: 1},
	}, s.TopAlarmTypes)
	assert.Equal(t, []domain.KeyValue{
		{Key: "BF Linz-Land", Value: 2},
		{Key: "FF Wels-Land", Value: 1},
		{Key: "FF Unlinked", Value: 1},
	}, s.MostActiveBrigades)
	assert.Equal(t, []domain.KeyValue{
		{Key: "Brand", Value: 1},
		{Key: "Technisch", Value: 0.5},
	}, s.AverageCallDuration)
	assert.Equal(t, []domain.KeyValue{
		{Key: "2020-01-02T23:00:00.000Z", Value: 2},
		{Key: "2020-01-04T23:00:00.000Z", Value: 1},
		{Key: "2020-01-06T23:00:00.000Z", Value: 1},
	}, s.AlarmsPerDay)

	rendered := renderer.rendered()
	require.Len(t, rendered, 1)
	assert.Equal(t, s.CycleID, rendered[0].CycleID)
}

func TestPipeline_Load_StatusLoadingUntilAllSourcesArrive(t *testing.T) {
	loader := newTestLoader()
	loader.gate = make(chan struct{})
	renderer := &mockRenderer{}
	p := newTestPipeline(loader, renderer)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background()) }()

	status, _ := p.Status()
	assert.Equal(t, pipeline.StatusLoading, status)
	_, err := p.Current()
	require.ErrorIs(t, err, pipeline.ErrNotLoaded)
	require.ErrorIs(t, p.CheckReadiness(context.Background()), pipeline.ErrNotLoaded)
	assert.Empty(t, renderer.rendered())

	close(loader.gate)
	require.NoError(t, <-done)

	status, _ = p.Status()
	assert.Equal(t, pipeline.StatusReady, status)
	assert.Len(t, renderer.rendered(), 1)
}

func TestPipeline_Load_SourceFailure(t *testing.T) {
	for _, tc := range []struct {
		source string
		mutate func(*mockLoader)
	}{
		{pipeline.SourceTopology, func(m *mockLoader) { m.topologyErr = errors.New("bad topology") }},
		{pipeline.SourceAlarms, func(m *mockLoader) { m.alarmsErr = errors.New("status 404") }},
		{pipeline.SourceBrigades, func(m *mockLoader) { m.brigadesErr = errors.New("missing column") }},
	} {
		t.Run(tc.source, func(t *testing.T) {
			loader := newTestLoader()
			tc.mutate(loader)
			renderer := &mockRenderer{}
			p := newTestPipeline(loader, renderer)

			err := p.Load(context.Background())
			require.Error(t, err)

			var loadErr *pipeline.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tc.source, loadErr.Source)

			status, statusErr := p.Status()
			assert.Equal(t, pipeline.StatusFailed, status)
			assert.Equal(t, err, statusErr)
			assert.Equal(t, err, p.CheckReadiness(context.Background()))

			_, err = p.Current()
			require.ErrorAs(t, err, &loadErr)
			_, err = p.SetMonth(context.Background(), 2)
			require.ErrorAs(t, err, &loadErr)
			_, err = p.Query(context.Background(), domain.Selection{Month: 1})
			require.ErrorAs(t, err, &loadErr)

			assert.Empty(t, renderer.rendered())
		})
	}
}

func TestPipeline_Load_Twice(t *testing.T) {
	p := newTestPipeline(newTestLoader())

	require.NoError(t, p.Load(context.Background()))
	assert.ErrorIs(t, p.Load(context.Background()), pipeline.ErrAlreadyLoaded)
}

func TestPipeline_Load_CancelledContext(t *testing.T) {
	loader := newTestLoader()
	loader.gate = make(chan struct{})
	p := newTestPipeline(loader)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	status, _ := p.Status()
	assert.Equal(t, pipeline.StatusFailed, status)
}

func TestPipeline_InvalidInitialMonthDefaultsToJanuary(t *testing.T) {
	p := newTestPipelineWith(newTestLoader(), pipeline.Settings{InitialMonth: 14, Limits: pipeline.DefaultLimits()})
	assert.Equal(t, domain.Selection{Month: 1}, p.Selection())
}

// --- selection ---

func TestPipeline_SelectionBeforeLoadIsUsedByFirstCycle(t *testing.T) {
	renderer := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)

	_, err := p.SetDistrict(context.Background(), "Linz-Land")
	require.ErrorIs(t, err, pipeline.ErrNotLoaded)
	assert.Equal(t, domain.Selection{Month: 1, District: "Linz-Land"}, p.Selection())

	require.NoError(t, p.Load(context.Background()))

	rendered := renderer.rendered()
	require.Len(t, rendered, 1)
	assert.Equal(t, "Linz-Land", rendered[0].DistrictLabel)
	assert.Equal(t, []int{1, 2}, alarmIDs(rendered[0].FilteredAlarms))
}

func TestPipeline_SetDistrict(t *testing.T) {
	renderer := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)
	require.NoError(t, p.Load(context.Background()))

	s, err := p.SetDistrict(context.Background(), "Linz-Land")
	require.NoError(t, err)

	assert.Equal(t, "Linz-Land", s.DistrictLabel)
	assert.Equal(t, []int{1, 2}, alarmIDs(s.FilteredAlarms))
	// Only brigades linked to the district's alarms remain.
	assert.Equal(t, 2, s.BrigadeCount)
	assert.Equal(t, []domain.KeyValue{{Key: "BF Linz-Land", Value: 2}}, s.MostActiveBrigades)
	// A single populated district pins the color scale minimum to 0.
	assert.Equal(t, domain.ColorDomain{Min: 0, Max: 2}, s.ColorDomain)
	assert.Zero(t, s.UnmappedAlarms)

	current, err := p.Current()
	require.NoError(t, err)
	assert.Equal(t, s.CycleID, current.CycleID)
	assert.Len(t, renderer.rendered(), 2)
}

func TestPipeline_SetDistrict_NoAlarms(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	s, err := p.SetDistrict(context.Background(), "Steyr-Land")
	require.NoError(t, err)

	assert.Empty(t, s.FilteredAlarms)
	assert.NotNil(t, s.FilteredAlarms)
	assert.Zero(t, s.BrigadeCount)
	assert.Empty(t, s.TopAlarmTypes)
	assert.Empty(t, s.AlarmsPerDay)
	assert.Equal(t, domain.ColorDomain{}, s.ColorDomain)
}

func TestPipeline_ResetDistrict(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	_, err := p.SetDistrict(context.Background(), "Wels-Land")
	require.NoError(t, err)

	s, err := p.ResetDistrict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.AllDistrictsLabel, s.DistrictLabel)
	assert.Len(t, s.FilteredAlarms, 4)
	assert.Equal(t, domain.Selection{Month: 1}, p.Selection())
}

func TestPipeline_SetMonth(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	s, err := p.SetMonth(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, alarmIDs(s.FilteredAlarms))
	assert.Equal(t, 1, s.BrigadeCount)

	s, err = p.SetMonth(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, s.FilteredAlarms)
	assert.Equal(t, domain.ColorDomain{}, s.ColorDomain)
}

func TestPipeline_SetMonth_Invalid(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	for _, month := range []int{0, 13, -1} {
		_, err := p.SetMonth(context.Background(), month)
		require.ErrorIs(t, err, pipeline.ErrInvalidMonth)
	}
	assert.Equal(t, domain.Selection{Month: 1}, p.Selection())
}

func TestPipeline_SetSelection(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	s, err := p.SetSelection(context.Background(), domain.Selection{Month: 2, District: "Linz-Land"})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, alarmIDs(s.FilteredAlarms))

	_, err = p.SetSelection(context.Background(), domain.Selection{Month: 0})
	require.ErrorIs(t, err, pipeline.ErrInvalidMonth)
	assert.Equal(t, domain.Selection{Month: 2, District: "Linz-Land"}, p.Selection())
}

func TestPipeline_EachCycleProducesFreshSummary(t *testing.T) {
	p := newTestPipeline(newTestLoader())
	require.NoError(t, p.Load(context.Background()))

	first, err := p.Current()
	require.NoError(t, err)
	again, err := p.SetMonth(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.CycleID, again.CycleID)
	// Same selection, same content.
	if diff := cmp.Diff(first.TopAlarmTypes, again.TopAlarmTypes); diff != "" {
		t.Errorf("top alarm types mismatch (-first +again):\n%s", diff)
	}
}

func TestPipeline_RenderErrorDoesNotFailCycle(t *testing.T) {
	failing := &mockRenderer{err: errors.New("broker down")}
	ok := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), failing, ok)
	require.NoError(t, p.Load(context.Background()))

	_, err := p.SetMonth(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, failing.rendered(), 2)
	assert.Len(t, ok.rendered(), 2)
}

type ctxRenderer struct {
	mu   sync.Mutex
	errs []error
}

func (c *ctxRenderer) Render(ctx context.Context, _ pipeline.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, ctx.Err())
	return nil
}

func TestPipeline_CallerCancellationDoesNotCancelRender(t *testing.T) {
	renderer := &ctxRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)
	require.NoError(t, p.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := p.SetDistrict(ctx, "Linz-Land")
	require.NoError(t, err)
	assert.Equal(t, "Linz-Land", s.Selection.District)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	require.Len(t, renderer.errs, 2)
	for _, err := range renderer.errs {
		assert.NoError(t, err)
	}
}

func TestPipeline_ConcurrentUpdatesRenderInOrder(t *testing.T) {
	renderer := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)
	require.NoError(t, p.Load(context.Background()))

	var wg sync.WaitGroup
	for month := 1; month <= 12; month++ {
		wg.Add(1)
		go func(m int) {
			defer wg.Done()
			_, err := p.SetMonth(context.Background(), m)
			assert.NoError(t, err)
		}(month)
	}
	wg.Wait()

	rendered := renderer.rendered()
	require.Len(t, rendered, 13)
	current, err := p.Current()
	require.NoError(t, err)
	assert.Equal(t, rendered[len(rendered)-1].CycleID, current.CycleID)
	assert.Equal(t, p.Selection(), current.Selection)
}

// --- query ---

func TestPipeline_Query(t *testing.T) {
	renderer := &mockRenderer{}
	p := newTestPipeline(newTestLoader(), renderer)
	require.NoError(t, p.Load(context.Background()))

	sel := domain.Selection{Month: 1, District: "Wels-Land"}
	s, err := p.Query(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, alarmIDs(s.FilteredAlarms))

	// The current selection and renderers are untouched.
	assert.Equal(t, domain.Selection{Month: 1}, p.Selection())
	assert.Len(t, renderer.rendered(), 1)

	cached, err := p.Query(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, s.CycleID, cached.CycleID)
}

func TestPipeline_Query_CacheDisabled(t *testing.T) {
	p := newTestPipelineWith(newTestLoader(), pipeline.Settings{InitialMonth: 1, Limits: pipeline.DefaultLimits()})
	require.NoError(t, p.Load(context.Background()))

	sel := domain.Selection{Month: 2}
	a, err := p.Query(context.Background(), sel)
	require.NoError(t, err)
	b, err := p.Query(context.Background(), sel)
	require.NoError(t, err)
	assert.NotEqual(t, a.CycleID, b.CycleID)
}

func TestPipeline_Query_Errors(t *testing.T) {
	p := newTestPipeline(newTestLoader())

	_, err := p.Query(context.Background(), domain.Selection{Month: 1})
	require.ErrorIs(t, err, pipeline.ErrNotLoaded)

	require.NoError(t, p.Load(context.Background()))
	_, err = p.Query(context.Background(), domain.Selection{Month: 13})
	require.ErrorIs(t, err, pipeline.ErrInvalidMonth)
}

// --- recompute ---

func TestRecompute_Limits(t *testing.T) {
	loader := newTestLoader()
	snap := &pipeline.Snapshot{Topology: loader.topology, Alarms: loader.alarms, Brigades: loader.brigades}

	s := pipeline.Recompute(snap, domain.Selection{Month: 1}, pipeline.Limits{
		TopAlarmTypes:   1,
		TopBrigades:     1,
		AverageDuration: 1,
		DaysPerMonth:    2,
	})

	assert.Equal(t, []domain.KeyValue{{Key: "Brand", Value: 3}}, s.TopAlarmTypes)
	assert.Equal(t, []domain.KeyValue{{Key: "BF Linz-Land", Value: 2}}, s.MostActiveBrigades)
	assert.Equal(t, []domain.KeyValue{{Key: "Brand", Value: 1}}, s.AverageCallDuration)
	assert.Len(t, s.AlarmsPerDay, 2)
	assert.Empty(t, s.CycleID)
	assert.True(t, s.ComputedAt.IsZero())
}

func TestRecompute_DoesNotMutateSnapshot(t *testing.T) {
	loader := newTestLoader()
	snap := &pipeline.Snapshot{Topology: loader.topology, Alarms: loader.alarms, Brigades: loader.brigades}
	before := alarmIDs(snap.Alarms)

	_ = pipeline.Recompute(snap, domain.Selection{Month: 1, District: "Linz-Land"}, pipeline.DefaultLimits())

	assert.Equal(t, before, alarmIDs(snap.Alarms))
	assert.Len(t, snap.Brigades, 5)
}
