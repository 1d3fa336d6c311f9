package usecase

import (
	"context"
	"log"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/match"
	"studnet/internal/store"
)

type MatchesSource interface {
	Matches(ctx context.Context) ([]profile.Profile, error)
}

// NetList is the matches screen. Stale marks data served from an expired
// cache entry or from memory after a failed refresh; Failed means nothing
// could be shown.
type NetList struct {
	Matches []profile.Profile
	Stale   bool
	Failed  bool
}

type NetListUsecase interface {
	List(ctx context.Context, userID int64) NetList
	Record(ctx context.Context, userID int64, p profile.Profile) error
	Unmatch(ctx context.Context, userID, profileID int64) error
}

type NetListService struct {
	source   MatchesSource
	registry *match.Registry
	store    *store.Local
	ttl      time.Duration
	logger   *log.Logger
}

var _ NetListUsecase = (*NetListService)(nil)

func NewNetListUsecase(source MatchesSource, registry *match.Registry, st *store.Local, ttl time.Duration, logger *log.Logger) *NetListService {
	return &NetListService{source: source, registry: registry, store: st, ttl: ttl, logger: logger}
}

// List merges the cached matches into the registry, then always refreshes
// them from the backend. A successful refresh replaces the registry and the
// cache; a failed one keeps what is already known.
func (u *NetListService) List(ctx context.Context, userID int64) NetList {
	if userID <= 0 {
		return NetList{Matches: []profile.Profile{}, Failed: true}
	}
	key := store.MatchesKey(userID)
	removed := u.unmatched(ctx, userID)

	var cached []profile.Profile
	entry := u.store.Read(ctx, key, &cached)
	if entry.Hit {
		for _, p := range cached {
			if !removed.Has(p.ID) {
				u.registry.Add(p)
			}
		}
	}

	fresh, err := u.source.Matches(ctx)
	if err != nil {
		if u.logger != nil {
			u.logger.Printf("[NetList] Refresh failed user_id=%d err=%v", userID, err)
		}
		list := u.registry.List()
		return NetList{
			Matches: list,
			Stale:   !(entry.Hit && entry.Fresh),
			Failed:  len(list) == 0 && !entry.Hit,
		}
	}

	kept := make([]profile.Profile, 0, len(fresh))
	for _, p := range fresh {
		if !removed.Has(p.ID) {
			kept = append(kept, p)
		}
	}
	u.registry.ReplaceAll(kept)
	u.persist(ctx, userID)
	return NetList{Matches: u.registry.List()}
}

// Record adds a new mutual match and writes it through to the cache so the
// next List does not lose it.
func (u *NetListService) Record(ctx context.Context, userID int64, p profile.Profile) error {
	if userID <= 0 || p.ID <= 0 {
		return ErrInvalidInput
	}
	u.registry.Add(p)

	removed := u.unmatched(ctx, userID)
	if removed.Has(p.ID) {
		delete(removed, p.ID)
		if err := u.store.Write(ctx, store.UnmatchedKey(userID), removed.IDs(), 0); err != nil {
			return err
		}
	}
	return u.persist(ctx, userID)
}

// Unmatch removes a match locally. The backend has no unmatch call, so the
// id is remembered and filtered out of later refreshes.
func (u *NetListService) Unmatch(ctx context.Context, userID, profileID int64) error {
	if userID <= 0 || profileID <= 0 {
		return ErrInvalidInput
	}
	if !u.registry.Remove(profileID) {
		return ErrNotFound
	}

	removed := u.unmatched(ctx, userID)
	removed.Add(profileID)
	if err := u.store.Write(ctx, store.UnmatchedKey(userID), removed.IDs(), 0); err != nil {
		return err
	}
	return u.persist(ctx, userID)
}

func (u *NetListService) unmatched(ctx context.Context, userID int64) profile.IDSet {
	var ids []int64
	u.store.Read(ctx, store.UnmatchedKey(userID), &ids)
	return profile.NewIDSet(ids...)
}

func (u *NetListService) persist(ctx context.Context, userID int64) error {
	err := u.store.Write(ctx, store.MatchesKey(userID), u.registry.List(), u.ttl)
	if err != nil && u.logger != nil {
		u.logger.Printf("[NetList] Cache write failed user_id=%d err=%v", userID, err)
	}
	return err
}
