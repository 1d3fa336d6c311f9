package match

import (
	"sync"

	"studnet/internal/domain/profile"
)

// Listener is called after every registry mutation, outside the lock.
type Listener func()

// Registry holds the profiles the current user has matched with. Insertion
// order is kept; ids are unique.
type Registry struct {
	mu      sync.RWMutex
	items   []profile.Profile
	index   map[int64]int
	nextSub int
	subs    map[int]Listener
}

func NewRegistry() *Registry {
	return &Registry{
		index: make(map[int64]int),
		subs:  make(map[int]Listener),
	}
}

// Add inserts p unless a profile with the same id is already present.
// It reports whether the registry changed.
func (r *Registry) Add(p profile.Profile) bool {
	r.mu.Lock()
	if _, ok := r.index[p.ID]; ok {
		r.mu.Unlock()
		return false
	}
	r.index[p.ID] = len(r.items)
	r.items = append(r.items, p)
	r.mu.Unlock()

	r.notify()
	return true
}

func (r *Registry) Remove(profileID int64) bool {
	r.mu.Lock()
	pos, ok := r.index[profileID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.items = append(r.items[:pos], r.items[pos+1:]...)
	r.reindexLocked()
	r.mu.Unlock()

	r.notify()
	return true
}

// ReplaceAll swaps the whole content, keeping the first occurrence of each id.
func (r *Registry) ReplaceAll(ps []profile.Profile) {
	r.mu.Lock()
	items := make([]profile.Profile, 0, len(ps))
	seen := make(map[int64]struct{}, len(ps))
	for _, p := range ps {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		items = append(items, p)
	}
	r.items = items
	r.reindexLocked()
	r.mu.Unlock()

	r.notify()
}

func (r *Registry) List() []profile.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]profile.Profile, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) Contains(profileID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[profileID]
	return ok
}

// Snapshot returns the current id set. The result is a copy.
func (r *Registry) Snapshot() profile.IDSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := make(profile.IDSet, len(r.items))
	for _, p := range r.items {
		s.Add(p.ID)
	}
	return s
}

// Subscribe registers fn and returns a function that removes it.
func (r *Registry) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) reindexLocked() {
	r.index = make(map[int64]int, len(r.items))
	for i, p := range r.items {
		r.index[p.ID] = i
	}
}

func (r *Registry) notify() {
	r.mu.RLock()
	subs := make([]Listener, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
