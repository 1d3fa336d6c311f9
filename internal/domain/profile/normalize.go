package profile

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is the wire shape of a profile as the backend sends it. Tag fields
// may arrive as a JSON array or as a string holding a serialized array.
type Record struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Username   *string         `json:"username"`
	FirstName  *string         `json:"first_name"`
	LastName   *string         `json:"last_name"`
	Name       string          `json:"name"`
	Gender     string          `json:"gender"`
	Age        int             `json:"age"`
	City       string          `json:"city"`
	University string          `json:"university"`
	Bio        *string         `json:"bio"`
	Interests  json.RawMessage `json:"interests"`
	Goals      json.RawMessage `json:"goals"`
	PhotoURL   *string         `json:"photo_url"`
	CreatedAt  *time.Time      `json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at"`
}

// Normalize converts a wire record into a Profile. Relative photo paths are
// resolved against baseURL.
func Normalize(r Record, baseURL string) Profile {
	return Profile{
		ID:         r.ID,
		UserID:     r.UserID,
		Username:   deref(r.Username),
		FirstName:  deref(r.FirstName),
		LastName:   deref(r.LastName),
		Name:       strings.TrimSpace(r.Name),
		Gender:     r.Gender,
		Age:        r.Age,
		City:       strings.TrimSpace(r.City),
		University: strings.TrimSpace(r.University),
		Bio:        deref(r.Bio),
		Interests:  DecodeTags(r.Interests),
		Goals:      DecodeTags(r.Goals),
		PhotoURL:   ResolvePhotoURL(baseURL, deref(r.PhotoURL)),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func NormalizeAll(rs []Record, baseURL string) []Profile {
	out := make([]Profile, 0, len(rs))
	for _, r := range rs {
		out = append(out, Normalize(r, baseURL))
	}
	return out
}

// DecodeTags decodes a tag field. It never fails: anything that is not an
// array of scalars, directly or inside a string, decodes to an empty slice.
func DecodeTags(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []string{}
	}

	switch raw[0] {
	case '[':
		return decodeTagArray(raw)
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return []string{}
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "[") {
			return []string{}
		}
		return decodeTagArray([]byte(s))
	default:
		return []string{}
	}
}

func decodeTagArray(raw []byte) []string {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		switch v := it.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ResolvePhotoURL returns absolute URLs unchanged and joins relative paths
// onto baseURL.
func ResolvePhotoURL(baseURL, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
