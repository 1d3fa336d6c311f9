package profile

import (
	"sort"
	"strings"
)

// Filter holds the facets of the "all candidates" tab.
type Filter struct {
	City       string   `json:"city"`
	University string   `json:"university"`
	Interests  []string `json:"interests"`
}

// Normalized trims values, drops blank tags, de-duplicates and sorts them so
// that equal filters compare and hash equally.
func (f Filter) Normalized() Filter {
	out := Filter{
		City:       strings.TrimSpace(f.City),
		University: strings.TrimSpace(f.University),
	}
	seen := make(map[string]struct{}, len(f.Interests))
	for _, t := range f.Interests {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := normalizeTag(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Interests = append(out.Interests, t)
	}
	sort.Strings(out.Interests)
	return out
}

func (f Filter) IsZero() bool {
	n := f.Normalized()
	return n.City == "" && n.University == "" && len(n.Interests) == 0
}

func (f Filter) Equal(o Filter) bool {
	a, b := f.Normalized(), o.Normalized()
	if !strings.EqualFold(a.City, b.City) || !strings.EqualFold(a.University, b.University) {
		return false
	}
	if len(a.Interests) != len(b.Interests) {
		return false
	}
	for i := range a.Interests {
		if !strings.EqualFold(a.Interests[i], b.Interests[i]) {
			return false
		}
	}
	return true
}

// Match applies the filter on the client side.
func (f Filter) Match(p Profile) bool {
	n := f.Normalized()
	if n.City != "" && !strings.EqualFold(n.City, strings.TrimSpace(p.City)) {
		return false
	}
	if n.University != "" && !strings.EqualFold(n.University, strings.TrimSpace(p.University)) {
		return false
	}
	return p.HasAnyInterest(n.Interests)
}

func (f Filter) Apply(ps []Profile) []Profile {
	out := make([]Profile, 0, len(ps))
	for _, p := range ps {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
