package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideaware/internal/commute"
	"rideaware/internal/types"
)

// --- Fake clock ---

// fakeClock is a manually advanced Clock. After registers a waiter that
// fires once Advance moves the clock past its deadline; non-positive waits
// fire immediately.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, fakeWaiter{at: f.now.Add(d), ch: ch})
	return ch
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var remaining []fakeWaiter
	for _, w := range f.waiters {
		if !w.at.After(f.now) {
			w.ch <- f.now
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.mu.Unlock()
}

// --- Mocks ---

type memSnapshotStore struct {
	mu        sync.Mutex
	snapshots []types.Snapshot
	insertErr error
	countErr  error
	preloaded int
}

func (m *memSnapshotStore) Insert(_ context.Context, s *types.Snapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *memSnapshotStore) CountByRide(_ context.Context, _ string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preloaded + len(m.snapshots), nil
}

func (m *memSnapshotStore) all() []types.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

type memStatusStore struct {
	mu       sync.Mutex
	statuses []string
}

func (m *memStatusStore) UpdateStatus(_ context.Context, _ string, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *memStatusStore) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.statuses))
	copy(out, m.statuses)
	return out
}

type fixedForecast struct {
	err error
}

func (f *fixedForecast) At(_ context.Context, _, _ float64, at time.Time) (types.WeatherSample, error) {
	if f.err != nil {
		return types.WeatherSample{}, f.err
	}
	temp := 15.0
	return types.WeatherSample{Timestamp: at, Temperature: &temp}, nil
}

func (f *fixedForecast) NextHours(_ context.Context, _, _ float64, hours int) ([]types.WeatherSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	temp := 15.0
	out := make([]types.WeatherSample, hours)
	for i := range out {
		out[i] = types.WeatherSample{Temperature: &temp}
	}
	return out, nil
}

// coordForecast records the coordinates of every fetch.
type coordForecast struct {
	mu     sync.Mutex
	coords []types.GeoPoint
}

func (f *coordForecast) At(_ context.Context, lat, lon float64, at time.Time) (types.WeatherSample, error) {
	f.mu.Lock()
	f.coords = append(f.coords, types.GeoPoint{Lat: lat, Lon: lon})
	f.mu.Unlock()
	temp := 15.0
	return types.WeatherSample{Timestamp: at, Temperature: &temp}, nil
}

func (f *coordForecast) NextHours(_ context.Context, lat, lon float64, hours int) ([]types.WeatherSample, error) {
	f.mu.Lock()
	f.coords = append(f.coords, types.GeoPoint{Lat: lat, Lon: lon})
	f.mu.Unlock()
	return make([]types.WeatherSample, hours), nil
}

func (f *coordForecast) all() []types.GeoPoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.GeoPoint, len(f.coords))
	copy(out, f.coords)
	return out
}

type memRouteSource struct {
	route *types.Route
	err   error
}

func (m *memRouteSource) GetByDevice(_ context.Context, _ string) (*types.Route, error) {
	return m.route, m.err
}

func testWindow(start time.Time, length time.Duration) commute.Window {
	return commute.Window{
		DeviceID: "device_abc123",
		RideID:   "ride_1",
		Start:    start,
		End:      start.Add(length),
		Location: time.UTC,
	}
}

var anchor = types.GeoPoint{Lat: 52.52, Lon: 13.405}

// --- Live collection ---

func TestSnapshotScheduler_LiveWindow_CollectsEveryTick(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock: clock,
	})

	w := testWindow(start, 30*time.Minute)
	s.Schedule(context.Background(), w, anchor, 10*time.Minute)

	// Ticks land at 08:00, 08:10, 08:20 and the final one at 08:30.
	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return len(store.all()) >= 4 && s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	snaps := store.all()
	require.Len(t, snaps, 4)
	assert.Equal(t, start, snaps[0].Timestamp)
	assert.Equal(t, start.Add(10*time.Minute), snaps[1].Timestamp)
	assert.Equal(t, start.Add(20*time.Minute), snaps[2].Timestamp)
	assert.Equal(t, w.End, snaps[3].Timestamp)
	for _, snap := range snaps {
		assert.Equal(t, "ride_1", snap.RideID)
		assert.Equal(t, "device_abc123", snap.DeviceID)
	}
	assert.Equal(t, []string{types.RideStatusActive, types.RideStatusCompleted}, statuses.all())
}

func TestSnapshotScheduler_PendingWindow_WaitsForStart(t *testing.T) {
	now := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock: clock,
	})

	start := now.Add(time.Hour)
	s.Schedule(context.Background(), testWindow(start, 20*time.Minute), anchor, 10*time.Minute)

	// Nothing before the window opens.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, store.all())

	require.Eventually(t, func() bool {
		clock.Advance(5 * time.Minute)
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Len(t, store.all(), 3)
}

func TestSnapshotScheduler_FetchFailureDoesNotStopCollection(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	fc := &fixedForecast{err: errors.New("upstream down")}
	s := NewSnapshotScheduler(fc, store, statuses, SnapshotSchedulerConfig{Clock: clock})

	s.Schedule(context.Background(), testWindow(start, 20*time.Minute), anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	// Every fetch failed, no snapshots, but the ride still completes.
	assert.Empty(t, store.all())
	assert.Contains(t, statuses.all(), types.RideStatusCompleted)
}

// --- Backfill ---

func TestSnapshotScheduler_PastWindow_Backfills(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(3 * time.Hour))
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock: clock,
	})

	w := testWindow(start, 30*time.Minute)
	s.Schedule(context.Background(), w, anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	snaps := store.all()
	require.Len(t, snaps, 4)
	assert.Equal(t, start, snaps[0].Timestamp)
	assert.Equal(t, w.End, snaps[3].Timestamp)
	assert.Equal(t, []string{types.RideStatusCompleted}, statuses.all())
}

func TestSnapshotScheduler_Backfill_SkippedWhenSnapshotsExist(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(3 * time.Hour))
	store := &memSnapshotStore{preloaded: 2}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock: clock,
	})

	s.Schedule(context.Background(), testWindow(start, 30*time.Minute), anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	// Any existing snapshot suppresses the whole walk.
	assert.Empty(t, store.all())
	assert.Equal(t, []string{types.RideStatusCompleted}, statuses.all())
}

func TestSnapshotScheduler_Backfill_CappedButKeepsEnd(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.AddDate(0, 0, 1))
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock:             clock,
		MaxBackfillPoints: 10,
	})

	// A 12h window at 10-minute pacing would be 73 points without the cap.
	w := testWindow(start, 12*time.Hour)
	s.Schedule(context.Background(), w, anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	snaps := store.all()
	require.Len(t, snaps, 10)
	assert.Equal(t, start, snaps[0].Timestamp)
	assert.Equal(t, w.End, snaps[9].Timestamp)
}

func TestSnapshotScheduler_RouteFollowedByElapsedFraction(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(3 * time.Hour))
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	fc := &coordForecast{}
	routes := &memRouteSource{route: &types.Route{
		DeviceID: "device_abc123",
		Points: []types.GeoPoint{
			{Lat: 52.0, Lon: 13.0},
			{Lat: 53.0, Lon: 13.0},
		},
	}}
	s := NewSnapshotScheduler(fc, store, statuses, SnapshotSchedulerConfig{
		Clock:  clock,
		Routes: routes,
	})

	w := testWindow(start, 30*time.Minute)
	s.Schedule(context.Background(), w, anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	// Fetch locations advance along the route with the elapsed fraction:
	// 0, 1/3, 2/3, 1 of the way from 52.0 to 53.0.
	coords := fc.all()
	require.Len(t, coords, 4)
	assert.InDelta(t, 52.0, coords[0].Lat, 1e-6)
	assert.InDelta(t, 52.0+1.0/3, coords[1].Lat, 1e-6)
	assert.InDelta(t, 52.0+2.0/3, coords[2].Lat, 1e-6)
	assert.InDelta(t, 53.0, coords[3].Lat, 1e-6)
	for _, c := range coords {
		assert.InDelta(t, 13.0, c.Lon, 1e-9)
	}
}

func TestSnapshotScheduler_AnchorUsedWithoutRoute(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(3 * time.Hour))
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	fc := &coordForecast{}
	routes := &memRouteSource{err: errors.New("no route saved")}
	s := NewSnapshotScheduler(fc, store, statuses, SnapshotSchedulerConfig{
		Clock:  clock,
		Routes: routes,
	})

	s.Schedule(context.Background(), testWindow(start, 20*time.Minute), anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	for _, c := range fc.all() {
		assert.Equal(t, anchor, c)
	}
}

func TestSnapshotScheduler_NoRouteNoAnchor_SkipsCollection(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	fc := &coordForecast{}
	routes := &memRouteSource{err: errors.New("no route saved")}
	s := NewSnapshotScheduler(fc, store, statuses, SnapshotSchedulerConfig{
		Clock:  clock,
		Routes: routes,
	})

	// A zero anchor means no usable location at all; nothing is fetched
	// rather than sampling (0,0).
	s.Schedule(context.Background(), testWindow(start, 20*time.Minute), types.GeoPoint{}, 10*time.Minute)

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	assert.Empty(t, fc.all())
	assert.Empty(t, store.all())
	assert.Empty(t, statuses.all())
}

// overrunForecast advances the clock on every fetch, simulating fetches slow
// enough to push the task past the window end.
type overrunForecast struct {
	clock *fakeClock
	step  time.Duration
	inner fixedForecast
}

func (f *overrunForecast) At(ctx context.Context, lat, lon float64, at time.Time) (types.WeatherSample, error) {
	f.clock.Advance(f.step)
	return f.inner.At(ctx, lat, lon, at)
}

func (f *overrunForecast) NextHours(ctx context.Context, lat, lon float64, hours int) ([]types.WeatherSample, error) {
	return f.inner.NextHours(ctx, lat, lon, hours)
}

func TestSnapshotScheduler_OverrunStillRecordsEndSnapshot(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	clock := newFakeClock(start.Add(10 * time.Minute))
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	fc := &overrunForecast{clock: clock, step: 15 * time.Minute}
	s := NewSnapshotScheduler(fc, store, statuses, SnapshotSchedulerConfig{Clock: clock})

	// Joining at 08:10, that tick's fetch overruns to 08:25, past the 08:20
	// window end. The end snapshot must still be recorded.
	w := testWindow(start, 20*time.Minute)
	s.Schedule(context.Background(), w, anchor, 10*time.Minute)

	require.Eventually(t, func() bool {
		return s.Running() == 0
	}, 5*time.Second, 5*time.Millisecond)

	snaps := store.all()
	require.Len(t, snaps, 2)
	assert.Equal(t, start.Add(10*time.Minute), snaps[0].Timestamp)
	assert.Equal(t, w.End, snaps[1].Timestamp)
	assert.Contains(t, statuses.all(), types.RideStatusCompleted)
}

func TestSnapshotScheduler_Reschedule_ReplacesRunningTask(t *testing.T) {
	now := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	store := &memSnapshotStore{}
	statuses := &memStatusStore{}
	s := NewSnapshotScheduler(&fixedForecast{}, store, statuses, SnapshotSchedulerConfig{
		Clock: clock,
	})

	s.Schedule(context.Background(), testWindow(now.Add(time.Hour), 30*time.Minute), anchor, 10*time.Minute)
	require.Eventually(t, func() bool { return s.Running() == 1 }, time.Second, 5*time.Millisecond)

	// Re-submitting the same ride replaces the pending task rather than
	// stacking a second collector.
	s.Schedule(context.Background(), testWindow(now.Add(2*time.Hour), 30*time.Minute), anchor, 10*time.Minute)
	assert.Equal(t, 1, s.Running())

	assert.True(t, s.Stop("ride_1"))
	assert.Equal(t, 0, s.Running())
}

func TestTickTimes(t *testing.T) {
	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	ticks := tickTimes(start, start.Add(30*time.Minute), 10*time.Minute)
	require.Len(t, ticks, 4)
	assert.Equal(t, start.Add(30*time.Minute), ticks[3])

	// An interval longer than the window still yields start and end.
	ticks = tickTimes(start, start.Add(5*time.Minute), time.Hour)
	require.Len(t, ticks, 2)
	assert.Equal(t, start, ticks[0])
	assert.Equal(t, start.Add(5*time.Minute), ticks[1])
}
