package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/infrastructure/api"
	"studnet/internal/store"
)

type ProfileSource interface {
	ProfileByUserID(ctx context.Context, userID int64) (profile.Profile, error)
	ProfileByID(ctx context.Context, id int64) (profile.Profile, error)
}

// OwnProfile is the home screen state. Exists is false when the user has not
// created a profile yet.
type OwnProfile struct {
	Profile profile.Profile
	Exists  bool
	Stale   bool
}

type ProfileUsecase interface {
	Own(ctx context.Context, userID int64) (OwnProfile, error)
	ByID(ctx context.Context, id int64) (profile.Profile, error)
}

type ProfileService struct {
	source ProfileSource
	store  *store.Local
	ttl    time.Duration
	logger *log.Logger
}

var _ ProfileUsecase = (*ProfileService)(nil)

func NewProfileUsecase(source ProfileSource, st *store.Local, ttl time.Duration, logger *log.Logger) *ProfileService {
	return &ProfileService{source: source, store: st, ttl: ttl, logger: logger}
}

type ownProfileEntry struct {
	Exists  bool            `json:"exists"`
	Profile profile.Profile `json:"profile"`
}

// Own returns the current user's profile from the backend and caches it. A
// 404 means "no profile yet" and is cached like any other answer. The cached
// answer is served when the backend fails, marked stale once expired.
func (u *ProfileService) Own(ctx context.Context, userID int64) (OwnProfile, error) {
	if userID <= 0 {
		return OwnProfile{}, ErrInvalidInput
	}
	key := store.OwnProfileKey(userID)

	var cached ownProfileEntry
	entry := u.store.Read(ctx, key, &cached)

	p, err := u.source.ProfileByUserID(ctx, userID)
	switch {
	case err == nil:
		u.remember(ctx, key, ownProfileEntry{Exists: true, Profile: p})
		return OwnProfile{Profile: p, Exists: true}, nil
	case errors.Is(err, api.ErrNotFound):
		u.remember(ctx, key, ownProfileEntry{})
		return OwnProfile{}, nil
	}

	if u.logger != nil {
		u.logger.Printf("[Profile] Own profile refresh failed user_id=%d err=%v", userID, err)
	}
	if entry.Hit {
		return OwnProfile{Profile: cached.Profile, Exists: cached.Exists, Stale: !entry.Fresh}, nil
	}
	return OwnProfile{}, err
}

func (u *ProfileService) ByID(ctx context.Context, id int64) (profile.Profile, error) {
	if id <= 0 {
		return profile.Profile{}, ErrInvalidInput
	}
	p, err := u.source.ProfileByID(ctx, id)
	if errors.Is(err, api.ErrNotFound) {
		return profile.Profile{}, ErrNotFound
	}
	return p, err
}

func (u *ProfileService) remember(ctx context.Context, key string, v ownProfileEntry) {
	if err := u.store.Write(ctx, key, v, u.ttl); err != nil && u.logger != nil {
		u.logger.Printf("[Profile] Cache write failed key=%s err=%v", key, err)
	}
}
