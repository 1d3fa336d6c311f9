package swipe

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/infrastructure/api"
	"studnet/internal/match"
	"studnet/internal/store"
)

// Backend lists candidates for both tabs.
type Backend interface {
	ListProfiles(ctx context.Context, q api.ProfileQuery) ([]profile.Profile, error)
	IncomingLikes(ctx context.Context, userID int64) ([]profile.Profile, error)
}

// Identity yields the current backend user id, 0 while unresolved.
type Identity interface {
	UserID() int64
}

type Config struct {
	LoadTimeout   time.Duration
	ExitAnimation time.Duration
	Threshold     float64
	FadeDistance  float64
	PageSize      int
	ProfilesTTL   time.Duration
}

type Deps struct {
	Identity Identity
	Backend  Backend
	Store    *store.Local
	Registry *match.Registry
	Delivery Delivery
	Logger   *log.Logger
}

// loadRun is one queue fetch. It is cancelled when a newer fetch supersedes it.
type loadRun struct {
	gen    uint64
	tab    Tab
	filter profile.Filter
	fresh  bool
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *loadRun) settle() {
	r.once.Do(func() {
		r.cancel()
		close(r.done)
	})
}

type deferred struct {
	tab    *Tab
	filter *profile.Filter
}

// Engine is the swipe state machine of one browsing session. All methods are
// safe for concurrent use; network failures never surface as errors and are
// reflected in the snapshot instead.
type Engine struct {
	cfg      Config
	identity Identity
	backend  Backend
	store    *store.Local
	registry *match.Registry
	delivery Delivery
	logger   *log.Logger

	life       context.Context
	stopLife   context.CancelFunc
	unregister func()

	mu          sync.Mutex
	closed      bool
	state       State
	tab         Tab
	filter      profile.Filter
	queue       []profile.Profile
	swiped      profile.IDSet
	exiting     *Exit
	exitSeq     uint64
	exitTimer   *time.Timer
	drag        Drag
	loadFailed  bool
	stale       bool
	refreshing  bool
	incoming    int
	scroll      float64
	savedScroll float64
	pending     *deferred
	gen         uint64
	run         *loadRun

	changes listeners[Snapshot]
	matches listeners[profile.Profile]
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 5 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.FadeDistance <= 0 {
		cfg.FadeDistance = DefaultFadeDistance
	}
	if deps.Registry == nil {
		deps.Registry = match.NewRegistry()
	}

	life, stop := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      cfg,
		identity: deps.Identity,
		backend:  deps.Backend,
		store:    deps.Store,
		registry: deps.Registry,
		delivery: deps.Delivery,
		logger:   deps.Logger,
		life:     life,
		stopLife: stop,
		state:    StateIdle,
		tab:      TabAll,
		swiped:   profile.NewIDSet(),
	}
	e.unregister = e.registry.Subscribe(e.purgeMatched)
	return e
}

// Start moves Idle to Loading once the identity is resolved. It reports
// whether a load was started.
func (e *Engine) Start() bool {
	if e.userID() == 0 {
		return false
	}
	e.mu.Lock()
	if e.closed || e.state != StateIdle {
		e.mu.Unlock()
		return false
	}
	e.beginLoadLocked(false)
	e.mu.Unlock()

	go e.refreshIncomingCount()
	e.emit()
	return true
}

// Settled is closed when the current load has finished, failed or been
// superseded.
func (e *Engine) Settled() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.run.done
}

// SetTab switches the active list. While a decision is in flight the switch is
// remembered and applied when the guard releases; the latest request wins.
func (e *Engine) SetTab(tab Tab) bool {
	if !tab.Valid() {
		return false
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	if e.busyLocked() {
		e.deferLocked(&tab, nil)
		e.mu.Unlock()
		e.emit()
		return false
	}
	if tab == e.tab && e.state != StateIdle {
		e.mu.Unlock()
		return false
	}
	e.tab = tab
	e.resetLocked()
	started := e.beginLoadIfReadyLocked()
	e.mu.Unlock()

	e.emit()
	return started
}

// SetFilter replaces the filters of the "all" tab. Any change empties the
// queue and reloads it. Deferred like SetTab while a decision is in flight.
func (e *Engine) SetFilter(f profile.Filter) bool {
	f = f.Normalized()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	if e.busyLocked() {
		e.deferLocked(nil, &f)
		e.mu.Unlock()
		e.emit()
		return false
	}
	if f.Equal(e.filter) {
		e.mu.Unlock()
		return false
	}
	e.filter = f
	started := false
	if e.tab == TabAll {
		e.resetLocked()
		started = e.beginLoadIfReadyLocked()
	}
	e.mu.Unlock()

	e.emit()
	return started
}

// Reload refetches the active list from the network without showing the cache first.
// It is the retry affordance after a failed load.
func (e *Engine) Reload() bool {
	if e.userID() == 0 {
		return false
	}
	e.mu.Lock()
	if e.closed || e.busyLocked() {
		e.mu.Unlock()
		return false
	}
	e.beginLoadLocked(true)
	e.mu.Unlock()

	e.emit()
	return true
}

func (e *Engine) Like() bool { return e.Decide(Like) }

func (e *Engine) Pass() bool { return e.Decide(Pass) }

// Decide applies d to the head card. It is a no-op unless the engine is Ready
// with a non-empty queue.
func (e *Engine) Decide(d Decision) bool {
	if d != Like && d != Pass {
		return false
	}
	e.mu.Lock()
	action, ok := e.decideLocked(d)
	e.mu.Unlock()
	if !ok {
		return false
	}

	e.emit()
	e.dispatch(action)
	return true
}

func (e *Engine) PointerDown(x, y float64) bool {
	e.mu.Lock()
	if e.closed || e.state != StateReady || len(e.queue) == 0 {
		e.mu.Unlock()
		return false
	}
	e.drag = Drag{Active: true, StartX: x, StartY: y, Opacity: 1}
	e.mu.Unlock()

	e.emit()
	return true
}

func (e *Engine) PointerMove(x, y float64) bool {
	e.mu.Lock()
	if !e.drag.Active {
		e.mu.Unlock()
		return false
	}
	e.drag.DX = x - e.drag.StartX
	e.drag.DY = y - e.drag.StartY
	e.drag.Opacity = Opacity(e.drag.DX, e.cfg.FadeDistance)
	e.mu.Unlock()

	e.emit()
	return true
}

// PointerUp ends a drag. A drag short of the threshold, or a mostly vertical
// one, snaps back without a decision.
func (e *Engine) PointerUp(x, y float64) (Decision, bool) {
	e.mu.Lock()
	if !e.drag.Active {
		e.mu.Unlock()
		return 0, false
	}
	dx, dy := x-e.drag.StartX, y-e.drag.StartY
	e.drag = Drag{}
	d, ok := Resolve(dx, dy, e.cfg.Threshold)
	var action Action
	if ok {
		action, ok = e.decideLocked(d)
	}
	e.mu.Unlock()

	e.emit()
	if !ok {
		return 0, false
	}
	e.dispatch(action)
	return d, true
}

// CompleteExit ends the exit animation: the guard is released, the saved scroll
// offset restored and any deferred tab or filter change applied.
func (e *Engine) CompleteExit() bool {
	e.mu.Lock()
	ok := e.completeExitLocked(e.exitSeq)
	e.mu.Unlock()
	if ok {
		e.emit()
	}
	return ok
}

func (e *Engine) SetScroll(offset float64) {
	e.mu.Lock()
	e.scroll = offset
	e.mu.Unlock()
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// OnChange registers fn to receive a snapshot after every state change.
func (e *Engine) OnChange(fn func(Snapshot)) func() {
	return e.changes.add(fn)
}

// OnMatch registers fn to be told about mutual matches confirmed by the
// backend.
func (e *Engine) OnMatch(fn func(profile.Profile)) func() {
	return e.matches.add(fn)
}

// Close cancels the current load and stops reacting to the registry. Decisions
// already handed to the delivery are not cancelled.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.run != nil {
		e.run.settle()
	}
	if e.exitTimer != nil {
		e.exitTimer.Stop()
		e.exitTimer = nil
	}
	e.mu.Unlock()

	e.stopLife()
	e.unregister()
}

func (e *Engine) busyLocked() bool {
	return e.state == StateDeciding || e.state == StateAnimatingExit
}

func (e *Engine) deferLocked(tab *Tab, f *profile.Filter) {
	if e.pending == nil {
		e.pending = &deferred{}
	}
	if tab != nil {
		e.pending.tab = tab
	}
	if f != nil {
		e.pending.filter = f
	}
}

func (e *Engine) resetLocked() {
	e.queue = nil
	e.drag = Drag{}
	e.loadFailed = false
	e.stale = false
}

func (e *Engine) beginLoadIfReadyLocked() bool {
	if e.userID() == 0 {
		return false
	}
	e.beginLoadLocked(false)
	return true
}

// beginLoadLocked supersedes any running fetch and starts a new one for the
// current tab and filter.
func (e *Engine) beginLoadLocked(force bool) {
	if e.run != nil {
		e.run.settle()
	}
	e.gen++
	ctx, cancel := context.WithTimeout(e.life, e.cfg.LoadTimeout)
	run := &loadRun{
		gen:    e.gen,
		tab:    e.tab,
		filter: e.filter,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.run = run
	e.state = StateLoading
	e.loadFailed = false
	e.refreshing = true

	go e.load(ctx, run, force)
}

func (e *Engine) load(ctx context.Context, run *loadRun, force bool) {
	userID := e.userID()

	if run.tab == TabAll && !force {
		var cached []profile.Profile
		entry := e.store.Read(ctx, store.ProfilesKey(userID, run.filter), &cached)
		if entry.Hit && !e.hydrate(run, cached, entry.Fresh) {
			return
		}
	}

	var (
		ps  []profile.Profile
		err error
	)
	if run.tab == TabIncoming {
		ps, err = e.backend.IncomingLikes(ctx, userID)
	} else {
		ps, err = e.backend.ListProfiles(ctx, api.ProfileQuery{
			UserID: userID,
			Size:   e.cfg.PageSize,
			Filter: run.filter,
		})
	}

	if err == nil && run.tab == TabAll {
		if werr := e.store.Write(e.life, store.ProfilesKey(userID, run.filter), ps, e.cfg.ProfilesTTL); werr != nil {
			e.logf("[Swipe] Cache write failed user_id=%d err=%v", userID, werr)
		}
	}
	e.finishLoad(run, ps, err)
}

// hydrate shows cached candidates while the network refresh runs. It reports
// whether the run is still current.
func (e *Engine) hydrate(run *loadRun, cached []profile.Profile, fresh bool) bool {
	e.mu.Lock()
	if e.closed || run.gen != e.gen {
		e.mu.Unlock()
		return false
	}
	e.queue = e.buildQueueLocked(cached, run)
	e.stale = !fresh
	run.fresh = fresh
	if e.state == StateLoading {
		e.state = StateReady
	}
	e.mu.Unlock()

	e.emit()
	return true
}

func (e *Engine) finishLoad(run *loadRun, ps []profile.Profile, err error) {
	e.mu.Lock()
	if e.closed || run.gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.refreshing = false
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.logf("[Swipe] Load timed out tab=%s timeout=%s", run.tab, e.cfg.LoadTimeout)
		} else {
			e.logf("[Swipe] Load failed tab=%s err=%v", run.tab, err)
		}
		if len(e.queue) == 0 {
			e.loadFailed = true
		} else if !run.fresh {
			e.stale = true
		}
	} else {
		e.queue = e.buildQueueLocked(ps, run)
		e.stale = false
		e.loadFailed = false
		if run.tab == TabIncoming {
			e.incoming = len(e.queue)
		}
	}
	if e.state == StateLoading {
		e.state = StateReady
	}
	run.settle()
	e.mu.Unlock()

	e.emit()
}

// buildQueueLocked drops candidates swiped this session, already matched, or
// outside the active filter. The registry snapshot is taken once.
func (e *Engine) buildQueueLocked(ps []profile.Profile, run *loadRun) []profile.Profile {
	matched := e.registry.Snapshot()
	self := e.userID()
	seen := profile.NewIDSet()
	out := make([]profile.Profile, 0, len(ps))
	for _, p := range ps {
		if seen.Has(p.ID) || e.swiped.Has(p.ID) || matched.Has(p.ID) {
			continue
		}
		if self != 0 && p.UserID == self {
			continue
		}
		if run.tab == TabAll && !run.filter.Match(p) {
			continue
		}
		seen.Add(p.ID)
		out = append(out, p)
	}
	return out
}

func (e *Engine) decideLocked(d Decision) (Action, bool) {
	if e.closed || e.state != StateReady || len(e.queue) == 0 {
		return Action{}, false
	}

	e.state = StateDeciding
	head := e.queue[0]
	e.queue = append([]profile.Profile(nil), e.queue[1:]...)
	e.swiped.Add(head.ID)
	e.drag = Drag{}
	e.savedScroll = e.scroll
	if e.tab == TabIncoming && e.incoming > 0 {
		e.incoming--
	}

	e.exitSeq++
	e.exiting = &Exit{Profile: head, Decision: d, Direction: d.Direction()}
	e.state = StateAnimatingExit
	if e.cfg.ExitAnimation > 0 {
		seq := e.exitSeq
		e.exitTimer = time.AfterFunc(e.cfg.ExitAnimation, func() {
			e.mu.Lock()
			ok := e.completeExitLocked(seq)
			e.mu.Unlock()
			if ok {
				e.emit()
			}
		})
	}

	return Action{UserID: e.userID(), Tab: e.tab, Decision: d, Profile: head}, true
}

func (e *Engine) completeExitLocked(seq uint64) bool {
	if e.closed || e.state != StateAnimatingExit || seq != e.exitSeq {
		return false
	}
	if e.exitTimer != nil {
		e.exitTimer.Stop()
		e.exitTimer = nil
	}
	e.exiting = nil
	e.scroll = e.savedScroll
	e.state = StateReady
	if e.refreshing && len(e.queue) == 0 {
		e.state = StateLoading
	}

	if p := e.pending; p != nil {
		e.pending = nil
		reload := false
		if p.filter != nil && !p.filter.Equal(e.filter) {
			e.filter = *p.filter
			reload = e.tab == TabAll
		}
		if p.tab != nil && *p.tab != e.tab {
			e.tab = *p.tab
			reload = true
		}
		if reload {
			e.resetLocked()
			e.beginLoadIfReadyLocked()
		}
	}
	return true
}

func (e *Engine) dispatch(a Action) {
	if e.delivery == nil {
		return
	}
	e.delivery.Deliver(a, func(out Outcome) {
		if !out.Matched {
			return
		}
		e.logf("[Swipe] Match profile_id=%d user_id=%d", a.Profile.ID, a.Profile.UserID)
		e.registry.Add(a.Profile)
		e.matches.notify(a.Profile)
	})
}

// purgeMatched runs after every registry mutation.
func (e *Engine) purgeMatched() {
	matched := e.registry.Snapshot()
	e.mu.Lock()
	n := len(e.queue)
	kept := e.queue[:0:0]
	for _, p := range e.queue {
		if !matched.Has(p.ID) {
			kept = append(kept, p)
		}
	}
	e.queue = kept
	changed := len(kept) != n
	e.mu.Unlock()

	if changed {
		e.emit()
	}
}

func (e *Engine) refreshIncomingCount() {
	userID := e.userID()
	ctx, cancel := context.WithTimeout(e.life, e.cfg.LoadTimeout)
	defer cancel()

	ps, err := e.backend.IncomingLikes(ctx, userID)
	if err != nil {
		e.logf("[Swipe] Incoming count unavailable user_id=%d err=%v", userID, err)
		return
	}
	matched := e.registry.Snapshot()

	e.mu.Lock()
	n := 0
	for _, p := range ps {
		if !e.swiped.Has(p.ID) && !matched.Has(p.ID) {
			n++
		}
	}
	e.incoming = n
	e.mu.Unlock()

	e.emit()
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		State:         e.state,
		Tab:           e.tab,
		Filter:        e.filter,
		Queue:         append([]profile.Profile(nil), e.queue...),
		Drag:          e.drag,
		LoadFailed:    e.loadFailed,
		Stale:         e.stale,
		Refreshing:    e.refreshing,
		Deferred:      e.pending != nil,
		IncomingCount: e.incoming,
		ScrollOffset:  e.scroll,
	}
	if s.Queue == nil {
		s.Queue = []profile.Profile{}
	}
	if e.exiting != nil {
		x := *e.exiting
		s.Exiting = &x
	}
	return s
}

func (e *Engine) emit() {
	if e.changes.empty() {
		return
	}
	e.changes.notify(e.Snapshot())
}

func (e *Engine) userID() int64 {
	if e.identity == nil {
		return 0
	}
	return e.identity.UserID()
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

type listeners[T any] struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners[T]) empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fns) == 0
}

func (l *listeners[T]) notify(v T) {
	l.mu.RLock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}
