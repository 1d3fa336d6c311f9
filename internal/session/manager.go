package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"studnet/internal/config"
	"studnet/internal/domain/profile"
	"studnet/internal/infrastructure/api"
	"studnet/internal/match"
	"studnet/internal/pkg/telegram"
	"studnet/internal/store"
	"studnet/internal/swipe"
	"studnet/internal/usecase"
	"studnet/internal/view"

	"golang.org/x/sync/singleflight"
)

var ErrSessionNotFound = errors.New("session not found")

// Notifier pushes events to the user's connected clients.
type Notifier interface {
	NotifyMatch(userID int64, p profile.Profile)
	NotifyView(userID int64, v view.CardView)
}

// Session is everything one user's mini-app needs: identity, backend client,
// swipe engine and the views around it.
type Session struct {
	UserID    int64
	Provider  *Provider
	Client    *api.Client
	Registry  *match.Registry
	Engine    *swipe.Engine
	Presenter *view.Presenter
	NetList   *usecase.NetListService
	Profiles  *usecase.ProfileService

	delivery swipe.Delivery
	unsub    []func()
	lastSeen atomic.Int64
	once     sync.Once
}

// View renders the current engine state.
func (s *Session) View(ctx context.Context) view.CardView {
	return s.Presenter.Render(ctx, s.Engine.Snapshot())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Close stops the engine and waits for pending decisions.
func (s *Session) Close() {
	s.once.Do(func() {
		for _, fn := range s.unsub {
			fn()
		}
		s.Engine.Close()
		if s.delivery != nil {
			s.delivery.Close()
		}
	})
}

// Manager keeps one Session per Telegram user.
type Manager struct {
	cfg       config.Config
	store     *store.Local
	validator *telegram.Validator
	logger    *log.Logger
	now       func() time.Time

	notifier atomic.Pointer[notifierBox]

	mu       sync.RWMutex
	sessions map[int64]*Session
	opening  singleflight.Group
}

type notifierBox struct{ n Notifier }

func NewManager(cfg config.Config, st *store.Local, validator *telegram.Validator, logger *log.Logger) *Manager {
	return &Manager{
		cfg:       cfg,
		store:     st,
		validator: validator,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[int64]*Session),
	}
}

func (m *Manager) SetNotifier(n Notifier) {
	m.notifier.Store(&notifierBox{n: n})
}

// Open returns the session of the user identified by initData, creating and
// initialising it on first use. Empty init data selects the demo user when
// demo mode is on.
func (m *Manager) Open(ctx context.Context, initData string) (*Session, error) {
	userID, err := m.identify(initData)
	if err != nil {
		return nil, err
	}

	if s, ok := m.Get(userID); ok {
		return s, nil
	}

	v, err, _ := m.opening.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		if s, ok := m.Get(userID); ok {
			return s, nil
		}
		s, err := m.build(ctx, userID, initData)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[userID] = s
		total := len(m.sessions)
		m.mu.Unlock()
		m.logf("[Session] Opened user_id=%d demo=%t total=%d", s.UserID, s.Provider.Demo(), total)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) Get(userID int64) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than idle and reports how many.
func (m *Manager) Sweep(idle time.Duration) int {
	now := m.now()
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(now) > idle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.logf("[Session] Closed idle user_id=%d", s.UserID)
	}
	return len(stale)
}

func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

func (m *Manager) identify(initData string) (int64, error) {
	if initData == "" {
		if m.cfg.Telegram.DemoMode {
			return m.demoUserID(), nil
		}
		return 0, ErrNoIdentity
	}
	data, err := m.validator.Validate(initData)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return data.User.ID, nil
}

func (m *Manager) demoUserID() int64 {
	if m.cfg.Telegram.DemoUserID > 0 {
		return m.cfg.Telegram.DemoUserID
	}
	return config.DefaultDemoUserID
}

func (m *Manager) build(ctx context.Context, userID int64, initData string) (*Session, error) {
	client := api.NewClient(m.cfg.API.BaseURL, m.cfg.API.RequestTimeout, m.logger)
	provider := NewProvider(client, m.store, Options{
		InitData:   initData,
		Validator:  m.validator,
		DemoMode:   m.cfg.Telegram.DemoMode,
		DemoUserID: m.demoUserID(),
	}, m.logger)
	client.SetTokenSource(provider)

	if err := provider.Init(ctx); err != nil {
		return nil, err
	}

	registry := match.NewRegistry()
	delivery := m.newDelivery(client)
	engine := swipe.New(swipe.Config{
		LoadTimeout:   m.cfg.Swipe.LoadTimeout,
		ExitAnimation: m.cfg.Swipe.ExitAnimation,
		Threshold:     m.cfg.Swipe.Threshold,
		FadeDistance:  m.cfg.Swipe.FadeDistance,
		PageSize:      m.cfg.Swipe.PageSize,
		ProfilesTTL:   m.cfg.Cache.ProfilesTTL,
	}, swipe.Deps{
		Identity: provider,
		Backend:  client,
		Store:    m.store,
		Registry: registry,
		Delivery: delivery,
		Logger:   m.logger,
	})

	s := &Session{
		UserID:    provider.UserID(),
		Provider:  provider,
		Client:    client,
		Registry:  registry,
		Engine:    engine,
		Presenter: view.NewPresenter(m.store, provider.UserID()),
		NetList:   usecase.NewNetListUsecase(client, registry, m.store, m.cfg.Cache.MatchesTTL, m.logger),
		Profiles:  usecase.NewProfileUsecase(client, m.store, m.cfg.Cache.OwnProfileTTL, m.logger),
		delivery:  delivery,
	}
	s.touch(m.now())

	s.unsub = append(s.unsub,
		engine.OnMatch(func(p profile.Profile) {
			if err := s.NetList.Record(context.Background(), s.UserID, p); err != nil {
				m.logf("[Session] Match not cached user_id=%d profile_id=%d err=%v", s.UserID, p.ID, err)
			}
			if n := m.currentNotifier(); n != nil {
				n.NotifyMatch(s.UserID, p)
			}
		}),
		engine.OnChange(func(snap swipe.Snapshot) {
			if n := m.currentNotifier(); n != nil {
				n.NotifyView(s.UserID, s.Presenter.Render(context.Background(), snap))
			}
		}),
	)

	// Matches come first so the queue is built without them.
	s.NetList.List(ctx, s.UserID)
	engine.Start()
	return s, nil
}

func (m *Manager) newDelivery(sender swipe.Sender) swipe.Delivery {
	if m.cfg.Swipe.DecisionRetryAttempts > 0 {
		return swipe.NewRetryQueue(sender, swipe.RetryOptions{
			Attempts: m.cfg.Swipe.DecisionRetryAttempts,
			Backoff:  500 * time.Millisecond,
			Timeout:  m.cfg.API.RequestTimeout,
		}, m.logger)
	}
	return swipe.NewFireAndForget(sender, m.cfg.API.RequestTimeout, m.logger)
}

func (m *Manager) currentNotifier() Notifier {
	b := m.notifier.Load()
	if b == nil {
		return nil
	}
	return b.n
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
