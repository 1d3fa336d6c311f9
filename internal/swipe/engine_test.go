package swipe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/infrastructure/api"
	"studnet/internal/infrastructure/cache"
	"studnet/internal/match"
	"studnet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = int64(900)

type staticIdentity int64

func (s staticIdentity) UserID() int64 { return int64(s) }

type listFunc func(ctx context.Context, q api.ProfileQuery) ([]profile.Profile, error)
type incomingFunc func(ctx context.Context, userID int64) ([]profile.Profile, error)

type fakeBackend struct {
	mu        sync.Mutex
	list      listFunc
	incoming  incomingFunc
	listCalls []api.ProfileQuery
}

func (f *fakeBackend) setList(fn listFunc) {
	f.mu.Lock()
	f.list = fn
	f.mu.Unlock()
}

func (f *fakeBackend) setIncoming(fn incomingFunc) {
	f.mu.Lock()
	f.incoming = fn
	f.mu.Unlock()
}

func (f *fakeBackend) ListProfiles(ctx context.Context, q api.ProfileQuery) ([]profile.Profile, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, q)
	fn := f.list
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, q)
}

func (f *fakeBackend) IncomingLikes(ctx context.Context, userID int64) ([]profile.Profile, error) {
	f.mu.Lock()
	fn := f.incoming
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, userID)
}

func (f *fakeBackend) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

func (f *fakeBackend) LastQuery() api.ProfileQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[len(f.listCalls)-1]
}

func returns(ps ...profile.Profile) listFunc {
	return func(context.Context, api.ProfileQuery) ([]profile.Profile, error) { return ps, nil }
}

func fails(err error) listFunc {
	return func(context.Context, api.ProfileQuery) ([]profile.Profile, error) { return nil, err }
}

// recordingDelivery captures actions and lets the test decide their outcome.
type recordingDelivery struct {
	mu      sync.Mutex
	actions []Action
	dones   []func(Outcome)
}

func (r *recordingDelivery) Deliver(a Action, done func(Outcome)) {
	r.mu.Lock()
	r.actions = append(r.actions, a)
	r.dones = append(r.dones, done)
	r.mu.Unlock()
}

func (r *recordingDelivery) Close() {}

func (r *recordingDelivery) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}

func (r *recordingDelivery) resolve(i int, out Outcome) {
	r.mu.Lock()
	done := r.dones[i]
	r.mu.Unlock()
	done(out)
}

func cand(id int64, city string) profile.Profile {
	return profile.Profile{
		ID:        id,
		UserID:    id + 1000,
		Name:      "P" + string(rune('A'+id%26)),
		City:      city,
		Interests: []string{},
		Goals:     []string{},
	}
}

type harness struct {
	engine   *Engine
	backend  *fakeBackend
	delivery *recordingDelivery
	registry *match.Registry
	store    *store.Local
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		backend:  &fakeBackend{},
		delivery: &recordingDelivery{},
		registry: match.NewRegistry(),
		store:    store.NewLocal(cache.NewMemory(), nil),
	}
	if cfg.ProfilesTTL == 0 {
		cfg.ProfilesTTL = time.Minute
	}
	h.engine = New(cfg, Deps{
		Identity: staticIdentity(me),
		Backend:  h.backend,
		Store:    h.store,
		Registry: h.registry,
		Delivery: h.delivery,
	})
	t.Cleanup(h.engine.Close)
	return h
}

func waitSettled(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case <-e.Settled():
	case <-time.After(2 * time.Second):
		t.Fatal("load did not settle")
	}
}

func queueIDs(s Snapshot) []int64 {
	out := []int64{}
	for _, p := range s.Queue {
		out = append(out, p.ID)
	}
	return out
}

func startWith(t *testing.T, h *harness, ps ...profile.Profile) {
	t.Helper()
	h.backend.setList(returns(ps...))
	require.True(t, h.engine.Start())
	waitSettled(t, h.engine)
	require.Equal(t, StateReady, h.engine.Snapshot().State)
}

func TestEngine_StartLoadsAndExcludes(t *testing.T) {
	h := newHarness(t, Config{PageSize: 20})
	h.registry.Add(cand(2, ""))
	self := cand(3, "")
	self.UserID = me

	assert.Equal(t, StateIdle, h.engine.Snapshot().State)
	startWith(t, h, cand(1, ""), cand(2, ""), self, cand(4, ""), cand(1, ""))

	s := h.engine.Snapshot()
	assert.Equal(t, []int64{1, 4}, queueIDs(s))
	assert.False(t, s.LoadFailed)
	assert.Equal(t, me, h.backend.LastQuery().UserID)
	assert.Equal(t, 20, h.backend.LastQuery().Size)
	assert.False(t, h.engine.Start())
}

func TestEngine_StartWithoutIdentityStaysIdle(t *testing.T) {
	e := New(Config{}, Deps{Identity: staticIdentity(0), Backend: &fakeBackend{}})
	defer e.Close()
	assert.False(t, e.Start())
	assert.Equal(t, StateIdle, e.Snapshot().State)
}

func TestEngine_ShortDragIsNeutral(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""))

	drags := [][2]float64{{50, 0}, {-99, 5}, {100, 0}, {150, 200}, {-120, -121}}
	for _, d := range drags {
		require.True(t, h.engine.PointerDown(10, 10))
		h.engine.PointerMove(10+d[0]/2, 10+d[1]/2)
		_, ok := h.engine.PointerUp(10+d[0], 10+d[1])
		assert.False(t, ok)
	}

	s := h.engine.Snapshot()
	assert.Equal(t, []int64{1, 2}, queueIDs(s))
	assert.Equal(t, StateReady, s.State)
	assert.False(t, s.Drag.Active)
	assert.Empty(t, h.delivery.Actions())
}

func TestEngine_DragFollowsPointerAndFades(t *testing.T) {
	h := newHarness(t, Config{FadeDistance: 200})
	startWith(t, h, cand(1, ""))

	h.engine.PointerDown(0, 0)
	h.engine.PointerMove(-50, 8)
	s := h.engine.Snapshot()
	assert.True(t, s.Drag.Active)
	assert.Equal(t, -50.0, s.Drag.DX)
	assert.Equal(t, 8.0, s.Drag.DY)
	assert.InDelta(t, 0.75, s.Drag.Opacity, 1e-9)
}

func TestEngine_DragPastThresholdDecides(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""))

	h.engine.PointerDown(200, 300)
	h.engine.PointerMove(300, 310)
	d, ok := h.engine.PointerUp(340, 310)
	require.True(t, ok)
	assert.Equal(t, Like, d)

	s := h.engine.Snapshot()
	assert.Equal(t, StateAnimatingExit, s.State)
	require.NotNil(t, s.Exiting)
	assert.Equal(t, DirectionRight, s.Exiting.Direction)
	assert.Equal(t, int64(1), s.Exiting.Profile.ID)
	assert.Equal(t, []int64{2}, queueIDs(s))

	actions := h.delivery.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, Like, actions[0].Decision)
	assert.Equal(t, me, actions[0].UserID)
	assert.Equal(t, TabAll, actions[0].Tab)
}

func TestEngine_SingleDecisionInFlight(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""), cand(3, ""))

	require.True(t, h.engine.Pass())
	assert.False(t, h.engine.Like())
	assert.False(t, h.engine.Pass())
	assert.False(t, h.engine.PointerDown(0, 0))
	assert.False(t, h.engine.Reload())
	_, ok := h.engine.PointerUp(500, 0)
	assert.False(t, ok)

	s := h.engine.Snapshot()
	assert.True(t, s.Busy())
	assert.Equal(t, []int64{2, 3}, queueIDs(s))
	assert.Len(t, h.delivery.Actions(), 1)

	require.True(t, h.engine.CompleteExit())
	assert.False(t, h.engine.CompleteExit())
	s = h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Nil(t, s.Exiting)
	head, ok := s.Head()
	require.True(t, ok)
	assert.Equal(t, int64(2), head.ID)

	require.True(t, h.engine.Like())
	assert.Len(t, h.delivery.Actions(), 2)
}

func TestEngine_MatchedLikeNeverReappears(t *testing.T) {
	h := newHarness(t, Config{})
	a, b, c := cand(1, ""), cand(2, ""), cand(3, "")
	startWith(t, h, a, b, c)

	var notified []int64
	h.engine.OnMatch(func(p profile.Profile) { notified = append(notified, p.ID) })

	require.True(t, h.engine.Like())
	h.delivery.resolve(0, Outcome{Matched: true})
	require.True(t, h.engine.CompleteExit())

	assert.True(t, h.registry.Contains(1))
	assert.Equal(t, []int64{1}, notified)
	assert.Equal(t, []int64{2, 3}, queueIDs(h.engine.Snapshot()))

	require.True(t, h.engine.Reload())
	waitSettled(t, h.engine)
	assert.Equal(t, []int64{2, 3}, queueIDs(h.engine.Snapshot()))
}

func TestEngine_PassWhileOffline(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""))

	require.True(t, h.engine.Pass())
	h.delivery.resolve(0, Outcome{Err: errors.New("network unreachable")})
	require.True(t, h.engine.CompleteExit())

	s := h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Empty(t, s.Queue)
	assert.False(t, s.LoadFailed)
	assert.Equal(t, 0, h.registry.Len())
	_, ok := s.Head()
	assert.False(t, ok)
}

func TestEngine_FilterChangeResetsAndReloads(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, "Moscow"), cand(2, "Kazan"), cand(3, "moscow"))
	require.True(t, h.engine.Pass())
	require.True(t, h.engine.CompleteExit())

	gate := make(chan struct{})
	h.backend.setList(func(ctx context.Context, q api.ProfileQuery) ([]profile.Profile, error) {
		<-gate
		// The backend ignores the filter here; the engine still applies it.
		return []profile.Profile{cand(1, "Moscow"), cand(4, "Kazan"), cand(5, "MOSCOW"), cand(3, "moscow")}, nil
	})

	require.True(t, h.engine.SetFilter(profile.Filter{City: " Moscow "}))
	s := h.engine.Snapshot()
	assert.Equal(t, StateLoading, s.State)
	assert.Empty(t, s.Queue)
	assert.Equal(t, "Moscow", s.Filter.City)

	close(gate)
	waitSettled(t, h.engine)

	s = h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, []int64{5, 3}, queueIDs(s))
	assert.Equal(t, "Moscow", h.backend.LastQuery().Filter.City)

	assert.False(t, h.engine.SetFilter(profile.Filter{City: "moscow"}))
}

func TestEngine_InterestFilter(t *testing.T) {
	h := newHarness(t, Config{})
	it := cand(1, "")
	it.Interests = []string{"IT", "Music"}
	art := cand(2, "")
	art.Interests = []string{"Art"}
	startWith(t, h, it, art)

	h.engine.SetFilter(profile.Filter{Interests: []string{"music", "sport"}})
	waitSettled(t, h.engine)
	assert.Equal(t, []int64{1}, queueIDs(h.engine.Snapshot()))
}

func TestEngine_TabSwitchDeferredWhileDeciding(t *testing.T) {
	h := newHarness(t, Config{})
	h.backend.setIncoming(func(context.Context, int64) ([]profile.Profile, error) {
		return []profile.Profile{cand(7, ""), cand(8, "")}, nil
	})
	startWith(t, h, cand(1, ""), cand(2, ""))

	require.True(t, h.engine.Like())
	assert.False(t, h.engine.SetTab(TabIncoming))
	assert.False(t, h.engine.SetFilter(profile.Filter{City: "Kazan"}))

	s := h.engine.Snapshot()
	assert.Equal(t, TabAll, s.Tab)
	assert.True(t, s.Deferred)
	assert.Equal(t, StateAnimatingExit, s.State)
	assert.Equal(t, []int64{2}, queueIDs(s))

	require.True(t, h.engine.CompleteExit())
	waitSettled(t, h.engine)

	s = h.engine.Snapshot()
	assert.Equal(t, TabIncoming, s.Tab)
	assert.False(t, s.Deferred)
	assert.Equal(t, "Kazan", s.Filter.City)
	assert.Equal(t, []int64{7, 8}, queueIDs(s))
	assert.Equal(t, 2, s.IncomingCount)
}

func TestEngine_LatestDeferredTabWins(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""))
	calls := h.backend.ListCalls()

	require.True(t, h.engine.Pass())
	h.engine.SetTab(TabIncoming)
	h.engine.SetTab(TabAll)
	require.True(t, h.engine.CompleteExit())

	s := h.engine.Snapshot()
	assert.Equal(t, TabAll, s.Tab)
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, []int64{2}, queueIDs(s))
	assert.Equal(t, calls, h.backend.ListCalls())
}

func TestEngine_IncomingDecisions(t *testing.T) {
	h := newHarness(t, Config{})
	h.backend.setIncoming(func(context.Context, int64) ([]profile.Profile, error) {
		return []profile.Profile{cand(7, ""), cand(8, "")}, nil
	})
	startWith(t, h, cand(1, ""))
	require.True(t, h.engine.SetTab(TabIncoming))
	waitSettled(t, h.engine)
	assert.Equal(t, 2, h.engine.Snapshot().IncomingCount)

	require.True(t, h.engine.Like())
	h.delivery.resolve(0, Outcome{Matched: true})
	require.True(t, h.engine.CompleteExit())
	require.True(t, h.engine.Pass())

	actions := h.delivery.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, TabIncoming, actions[0].Tab)
	assert.Equal(t, int64(7), actions[0].Profile.ID)
	assert.Equal(t, Pass, actions[1].Decision)
	assert.True(t, h.registry.Contains(7))
	assert.Equal(t, 0, h.engine.Snapshot().IncomingCount)
}

func TestEngine_RegistryMutationPurgesQueue(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""), cand(3, ""))

	var snaps []Snapshot
	var mu sync.Mutex
	h.engine.OnChange(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	h.registry.Add(cand(2, ""))
	assert.Equal(t, []int64{1, 3}, queueIDs(h.engine.Snapshot()))

	h.registry.ReplaceAll([]profile.Profile{cand(1, ""), cand(3, "")})
	assert.Empty(t, h.engine.Snapshot().Queue)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	assert.Empty(t, snaps[len(snaps)-1].Queue)
}

func TestEngine_FreshCacheShownThenRefreshed(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.store.Write(ctx, store.ProfilesKey(me, profile.Filter{}), []profile.Profile{cand(1, ""), cand(2, "")}, time.Minute))

	gate := make(chan struct{})
	h.backend.setList(func(context.Context, api.ProfileQuery) ([]profile.Profile, error) {
		<-gate
		return []profile.Profile{cand(1, ""), cand(2, ""), cand(3, "")}, nil
	})
	require.True(t, h.engine.Start())

	require.Eventually(t, func() bool {
		s := h.engine.Snapshot()
		return s.State == StateReady && len(s.Queue) == 2
	}, time.Second, 5*time.Millisecond)
	s := h.engine.Snapshot()
	assert.False(t, s.Stale)
	assert.True(t, s.Refreshing)

	close(gate)
	waitSettled(t, h.engine)
	s = h.engine.Snapshot()
	assert.Equal(t, []int64{1, 2, 3}, queueIDs(s))
	assert.False(t, s.Refreshing)
	assert.Equal(t, 1, h.backend.ListCalls())

	var cached []profile.Profile
	h.store.Read(ctx, store.ProfilesKey(me, profile.Filter{}), &cached)
	assert.Len(t, cached, 3)
}

func TestEngine_FreshCacheKeptWhenRefreshFails(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.store.Write(context.Background(), store.ProfilesKey(me, profile.Filter{}), []profile.Profile{cand(1, "")}, time.Minute))
	h.backend.setList(fails(errors.New("502")))

	require.True(t, h.engine.Start())
	waitSettled(t, h.engine)

	s := h.engine.Snapshot()
	assert.Equal(t, []int64{1}, queueIDs(s))
	assert.False(t, s.Stale)
	assert.False(t, s.LoadFailed)
	assert.Equal(t, 1, h.backend.ListCalls())
}

func TestEngine_ReloadJoinsInFlightRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[{"id":1,"user_id":10,"name":"A"},{"id":2,"user_id":20,"name":"B"}]`))
	}))
	t.Cleanup(srv.Close)

	e := New(Config{LoadTimeout: 2 * time.Second, ProfilesTTL: time.Minute}, Deps{
		Identity: staticIdentity(me),
		Backend:  api.NewClient(srv.URL, 2*time.Second, nil),
		Store:    store.NewLocal(cache.NewMemory(), nil),
		Registry: match.NewRegistry(),
		Delivery: &recordingDelivery{},
	})
	t.Cleanup(e.Close)

	require.True(t, e.Start())
	time.Sleep(50 * time.Millisecond)
	require.True(t, e.Reload())
	waitSettled(t, e)

	s := e.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.False(t, s.LoadFailed)
	assert.Equal(t, []int64{1, 2}, queueIDs(s))
}

func TestEngine_StaleCacheShownThenRefreshed(t *testing.T) {
	h := newHarness(t, Config{})
	past := time.Now().Add(-time.Hour)
	h.store.WithClock(func() time.Time { return past })
	require.NoError(t, h.store.Write(context.Background(), store.ProfilesKey(me, profile.Filter{}), []profile.Profile{cand(1, "")}, time.Minute))
	h.store.WithClock(time.Now)

	gate := make(chan struct{})
	h.backend.setList(func(context.Context, api.ProfileQuery) ([]profile.Profile, error) {
		<-gate
		return []profile.Profile{cand(1, ""), cand(2, "")}, nil
	})
	require.True(t, h.engine.Start())

	require.Eventually(t, func() bool {
		s := h.engine.Snapshot()
		return s.State == StateReady && len(s.Queue) == 1
	}, time.Second, 5*time.Millisecond)
	s := h.engine.Snapshot()
	assert.True(t, s.Stale)
	assert.True(t, s.Refreshing)

	close(gate)
	waitSettled(t, h.engine)
	s = h.engine.Snapshot()
	assert.Equal(t, []int64{1, 2}, queueIDs(s))
	assert.False(t, s.Stale)

	var cached []profile.Profile
	entry := h.store.Read(context.Background(), store.ProfilesKey(me, profile.Filter{}), &cached)
	assert.True(t, entry.Fresh)
	assert.Len(t, cached, 2)
}

func TestEngine_LoadFailureFallsBackToStaleCache(t *testing.T) {
	h := newHarness(t, Config{})
	h.store.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	require.NoError(t, h.store.Write(context.Background(), store.ProfilesKey(me, profile.Filter{}), []profile.Profile{cand(1, "")}, time.Minute))
	h.store.WithClock(time.Now)
	h.backend.setList(fails(errors.New("503")))

	require.True(t, h.engine.Start())
	waitSettled(t, h.engine)

	s := h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, []int64{1}, queueIDs(s))
	assert.True(t, s.Stale)
	assert.False(t, s.LoadFailed)
}

func TestEngine_LoadFailureWithoutCacheOffersRetry(t *testing.T) {
	h := newHarness(t, Config{})
	h.backend.setList(fails(errors.New("connection refused")))

	require.True(t, h.engine.Start())
	waitSettled(t, h.engine)

	s := h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Empty(t, s.Queue)
	assert.True(t, s.LoadFailed)

	h.backend.setList(returns(cand(1, "")))
	require.True(t, h.engine.Reload())
	waitSettled(t, h.engine)
	s = h.engine.Snapshot()
	assert.False(t, s.LoadFailed)
	assert.Equal(t, []int64{1}, queueIDs(s))
}

func TestEngine_LoadTimeout(t *testing.T) {
	h := newHarness(t, Config{LoadTimeout: 30 * time.Millisecond})
	h.backend.setList(func(ctx context.Context, _ api.ProfileQuery) ([]profile.Profile, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	require.True(t, h.engine.Start())
	waitSettled(t, h.engine)
	s := h.engine.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.True(t, s.LoadFailed)
}

func TestEngine_SupersededLoadIsCancelledAndDiscarded(t *testing.T) {
	h := newHarness(t, Config{})
	cancelled := make(chan struct{})
	release := make(chan struct{})
	h.backend.setList(func(ctx context.Context, _ api.ProfileQuery) ([]profile.Profile, error) {
		<-ctx.Done()
		close(cancelled)
		<-release
		return []profile.Profile{cand(1, "")}, nil
	})
	h.backend.setIncoming(func(context.Context, int64) ([]profile.Profile, error) {
		return []profile.Profile{cand(9, "")}, nil
	})

	require.True(t, h.engine.Start())
	first := h.engine.Settled()
	require.True(t, h.engine.SetTab(TabIncoming))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded load was not cancelled")
	}
	select {
	case <-first:
	default:
		t.Fatal("superseded load did not settle")
	}

	waitSettled(t, h.engine)
	close(release)
	time.Sleep(20 * time.Millisecond)

	s := h.engine.Snapshot()
	assert.Equal(t, TabIncoming, s.Tab)
	assert.Equal(t, []int64{9}, queueIDs(s))
}

func TestEngine_ExitAnimationCompletesOnItsOwn(t *testing.T) {
	h := newHarness(t, Config{ExitAnimation: 20 * time.Millisecond})
	startWith(t, h, cand(1, ""), cand(2, ""))

	require.True(t, h.engine.Like())
	assert.Equal(t, StateAnimatingExit, h.engine.Snapshot().State)
	require.Eventually(t, func() bool {
		return h.engine.Snapshot().State == StateReady
	}, time.Second, 5*time.Millisecond)
	assert.Nil(t, h.engine.Snapshot().Exiting)
}

func TestEngine_ScrollRestoredAfterExit(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""), cand(2, ""))

	h.engine.SetScroll(120)
	require.True(t, h.engine.Pass())
	h.engine.SetScroll(0)
	require.True(t, h.engine.CompleteExit())
	assert.Equal(t, 120.0, h.engine.Snapshot().ScrollOffset)
}

func TestEngine_ClosedEngineIgnoresInput(t *testing.T) {
	h := newHarness(t, Config{})
	startWith(t, h, cand(1, ""))
	h.engine.Close()

	assert.False(t, h.engine.Like())
	assert.False(t, h.engine.SetTab(TabIncoming))
	assert.False(t, h.engine.Reload())
	h.registry.Add(cand(1, ""))
	assert.Equal(t, []int64{1}, queueIDs(h.engine.Snapshot()))
}

func TestEngine_WithFireAndForgetDelivery(t *testing.T) {
	sender := &fakeSender{likeResult: api.LikeResult{Matched: true}}
	delivery := NewFireAndForget(sender, time.Second, nil)
	registry := match.NewRegistry()
	backend := &fakeBackend{}
	backend.setList(returns(cand(1, ""), cand(2, "")))
	e := New(Config{}, Deps{
		Identity: staticIdentity(me),
		Backend:  backend,
		Registry: registry,
		Delivery: delivery,
	})
	defer e.Close()

	matched := make(chan profile.Profile, 1)
	e.OnMatch(func(p profile.Profile) { matched <- p })

	require.True(t, e.Start())
	waitSettled(t, e)
	require.True(t, e.Like())

	select {
	case p := <-matched:
		assert.Equal(t, int64(1), p.ID)
	case <-time.After(time.Second):
		t.Fatal("no match notification")
	}
	delivery.Close()
	assert.True(t, registry.Contains(1))
	assert.Equal(t, []int64{1}, sender.Likes())
}
