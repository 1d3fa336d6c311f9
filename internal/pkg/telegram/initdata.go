package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInitDataEmpty     = errors.New("init data empty")
	ErrInitDataMalformed = errors.New("init data malformed")
	ErrInitDataNoUser    = errors.New("init data has no user")
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data expired")
)

// User is the Telegram user embedded in Mini-App init data.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// InitData is the parsed launch payload a Mini-App receives from the client.
type InitData struct {
	Raw      string
	QueryID  string
	User     User
	AuthDate time.Time
	Hash     string
}

// Parse decodes init data without checking its signature.
func Parse(raw string) (InitData, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InitData{}, ErrInitDataEmpty
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, ErrInitDataMalformed
	}

	out := InitData{
		Raw:     raw,
		QueryID: vals.Get("query_id"),
		Hash:    vals.Get("hash"),
	}
	if v := vals.Get("auth_date"); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return InitData{}, ErrInitDataMalformed
		}
		out.AuthDate = time.Unix(sec, 0).UTC()
	}

	userJSON := vals.Get("user")
	if userJSON == "" {
		return InitData{}, ErrInitDataNoUser
	}
	if err := json.Unmarshal([]byte(userJSON), &out.User); err != nil {
		return InitData{}, ErrInitDataMalformed
	}
	if out.User.ID <= 0 {
		return InitData{}, ErrInitDataNoUser
	}
	return out, nil
}

// Validator checks the signature Telegram attaches to init data.
type Validator struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewValidator(botToken string, maxAge time.Duration) *Validator {
	return &Validator{botToken: strings.TrimSpace(botToken), maxAge: maxAge, now: time.Now}
}

// Enabled reports whether a bot token is configured. Without one, Validate
// only parses.
func (v *Validator) Enabled() bool {
	return v != nil && v.botToken != ""
}

func (v *Validator) Validate(raw string) (InitData, error) {
	data, err := Parse(raw)
	if err != nil {
		return InitData{}, err
	}
	if !v.Enabled() {
		return data, nil
	}

	vals, _ := url.ParseQuery(data.Raw)
	expected := Sign(vals, v.botToken)
	if data.Hash == "" || !hmac.Equal([]byte(expected), []byte(strings.ToLower(data.Hash))) {
		return InitData{}, ErrInitDataSignature
	}

	if v.maxAge > 0 && !data.AuthDate.IsZero() && v.now().Sub(data.AuthDate) > v.maxAge {
		return InitData{}, ErrInitDataExpired
	}
	return data, nil
}

// Sign computes the hex hash of the data-check string of vals, excluding the
// hash field itself.
func Sign(vals url.Values, botToken string) string {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+vals.Get(k))
	}
	check := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(check))
	return hex.EncodeToString(mac.Sum(nil))
}
