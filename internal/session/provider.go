package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"studnet/internal/infrastructure/api"
	"studnet/internal/pkg/jwt"
	"studnet/internal/pkg/telegram"
	"studnet/internal/store"

	"golang.org/x/sync/singleflight"
)

var (
	ErrRejected   = errors.New("authorization rejected")
	ErrNoIdentity = errors.New("no identity available")
)

// tokenSkew discards persisted tokens that are about to expire.
const tokenSkew = 30 * time.Second

// Authenticator exchanges an identity for a backend bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, in api.AuthRequest) (string, error)
}

type Options struct {
	// InitData is the raw launch payload from the host runtime. Empty means
	// the app runs outside Telegram.
	InitData   string
	Validator  *telegram.Validator
	DemoMode   bool
	DemoUserID int64
}

// Provider resolves who the current user is and keeps a bearer token for them.
type Provider struct {
	auth   Authenticator
	store  *store.Local
	opts   Options
	logger *log.Logger
	now    func() time.Time

	mu       sync.RWMutex
	user     telegram.User
	demo     bool
	initData string
	token    string
	loading  bool
	err      error

	exchanges singleflight.Group
}

var _ api.TokenSource = (*Provider)(nil)

func NewProvider(auth Authenticator, st *store.Local, opts Options, logger *log.Logger) *Provider {
	return &Provider{
		auth:    auth,
		store:   st,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		loading: true,
	}
}

// Init resolves the identity and obtains a token. The returned error is the
// blocking one also reported by Err; network trouble is logged and tolerated
// as long as some identity stands in.
func (p *Provider) Init(ctx context.Context) error {
	user, initData, demo, err := p.resolveIdentity(ctx)
	if err != nil {
		p.finish(telegram.User{}, "", false, "", err)
		return err
	}

	if tok := p.savedToken(ctx, user.ID); tok != "" {
		p.finish(user, initData, demo, tok, nil)
		p.logf("[Session] Restored token user_id=%d", user.ID)
		return nil
	}

	tok, err := p.exchange(ctx, user.ID, initData)
	if errors.Is(err, ErrRejected) && !demo {
		if !p.opts.DemoMode {
			p.finish(user, initData, demo, "", err)
			return err
		}
		p.logf("[Session] Rejected, falling back to demo identity user_id=%d", user.ID)
		user, initData, demo = p.demoUser(), "", true
		tok, err = p.exchange(ctx, user.ID, "")
	}
	if err != nil {
		p.logf("[Session] Auth exchange failed, continuing without token user_id=%d err=%v", user.ID, err)
		tok = ""
	}

	p.finish(user, initData, demo, tok, nil)
	p.persist(ctx, user.ID, tok)
	return nil
}

// Reauthenticate repeats the exchange for the current identity. Concurrent
// callers share one exchange.
func (p *Provider) Reauthenticate(ctx context.Context) (string, error) {
	p.mu.RLock()
	user, initData := p.user, p.initData
	p.mu.RUnlock()
	if user.ID == 0 {
		return "", ErrNoIdentity
	}

	v, err, _ := p.exchanges.Do(strconv.FormatInt(user.ID, 10), func() (any, error) {
		tok, err := p.exchange(ctx, user.ID, initData)
		if err != nil {
			return "", err
		}
		p.mu.Lock()
		p.token = tok
		p.mu.Unlock()
		p.persist(ctx, user.ID, tok)
		return tok, nil
	})
	if err != nil {
		p.logf("[Session] Reauthentication failed user_id=%d err=%v", user.ID, err)
		return "", err
	}
	return v.(string), nil
}

func (p *Provider) User() telegram.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user
}

// UserID is the backend id of the current user, 0 before Init.
func (p *Provider) UserID() int64 {
	return p.User().ID
}

func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

func (p *Provider) Demo() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.demo
}

func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// resolveIdentity prefers host init data, then the demo identity, then the
// last user seen on this device.
func (p *Provider) resolveIdentity(ctx context.Context) (telegram.User, string, bool, error) {
	if p.opts.InitData != "" {
		data, err := p.opts.Validator.Validate(p.opts.InitData)
		if err == nil {
			return data.User, data.Raw, false, nil
		}
		p.logf("[Session] Init data rejected err=%v", err)
		if !p.opts.DemoMode {
			return telegram.User{}, "", false, fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	if p.opts.DemoMode {
		return p.demoUser(), "", true, nil
	}
	var last int64
	if e := p.store.Read(ctx, store.KeyLastUser, &last); e.Hit && last > 0 {
		return telegram.User{ID: last}, "", false, nil
	}
	return telegram.User{}, "", false, ErrNoIdentity
}

func (p *Provider) demoUser() telegram.User {
	id := p.opts.DemoUserID
	if id <= 0 {
		id = 123456789
	}
	return telegram.User{ID: id, FirstName: "Demo", Username: "demo_user"}
}

// exchange tries the signed init data first and the developer login second.
// Only a 400/401 on both attempts counts as a rejection.
func (p *Provider) exchange(ctx context.Context, userID int64, initData string) (string, error) {
	if p.auth == nil {
		return "", ErrNoIdentity
	}
	if initData != "" {
		tok, err := p.auth.Authenticate(ctx, api.AuthRequest{InitData: initData, UserID: userID})
		if err == nil {
			return tok, nil
		}
		if !rejected(err) {
			return "", err
		}
	}
	tok, err := p.auth.Authenticate(ctx, api.AuthRequest{UserID: userID, DevMode: true})
	if err != nil {
		if rejected(err) {
			return "", fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return "", err
	}
	return tok, nil
}

func rejected(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrBadRequest)
}

func (p *Provider) savedToken(ctx context.Context, userID int64) string {
	var tok string
	e := p.store.Read(ctx, store.TokenKey(userID), &tok)
	if !e.Hit || tok == "" {
		return ""
	}
	if jwt.ExpiresWithin(tok, p.now(), tokenSkew) {
		_ = p.store.Delete(ctx, store.TokenKey(userID))
		return ""
	}
	return tok
}

func (p *Provider) persist(ctx context.Context, userID int64, tok string) {
	if tok != "" {
		if err := p.store.Write(ctx, store.TokenKey(userID), tok, 0); err != nil {
			p.logf("[Session] Persist token failed user_id=%d err=%v", userID, err)
		}
	}
	_ = p.store.Write(ctx, store.KeyLastUser, userID, 0)
}

func (p *Provider) finish(user telegram.User, initData string, demo bool, tok string, err error) {
	p.mu.Lock()
	p.user = user
	p.initData = initData
	p.demo = demo
	p.token = tok
	p.err = err
	p.loading = false
	p.mu.Unlock()
}

func (p *Provider) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
