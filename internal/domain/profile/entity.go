package profile

import (
	"slices"
	"strings"
	"time"
)

// Profile is a candidate profile after ingestion. Interests and Goals are
// always non-nil string slices.
type Profile struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Name       string     `json:"name"`
	Gender     string     `json:"gender,omitempty"`
	Age        int        `json:"age"`
	City       string     `json:"city"`
	University string     `json:"university"`
	Bio        string     `json:"bio,omitempty"`
	Interests  []string   `json:"interests"`
	Goals      []string   `json:"goals"`
	PhotoURL   string     `json:"photo_url,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func (p Profile) HasPhoto() bool {
	return strings.TrimSpace(p.PhotoURL) != ""
}

// HasAnyInterest reports whether p shares at least one interest with tags,
// compared case-insensitively. An empty tags set matches every profile.
func (p Profile) HasAnyInterest(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		want[t] = struct{}{}
	}
	if len(want) == 0 {
		return true
	}
	for _, it := range p.Interests {
		if _, ok := want[normalizeTag(it)]; ok {
			return true
		}
	}
	return false
}

// IDSet collects profile ids.
type IDSet map[int64]struct{}

func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

// IDs returns the members in ascending order.
func (s IDSet) IDs() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
