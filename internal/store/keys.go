package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"studnet/internal/domain/profile"
)

const (
	KeyLastUser = "auth:last_user"

	FlagTutorialSeen    = "tutorial_seen"
	FlagIncomingTipSeen = "incoming_tip_seen"
)

func userPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}

// ProfilesKey scopes the candidates list by user and, when filters are set,
// by a hash of the normalized filter.
func ProfilesKey(userID int64, f profile.Filter) string {
	base := userPrefix(userID) + "profiles"
	if f.IsZero() {
		return base
	}
	n := f.Normalized()
	n.City = strings.ToLower(n.City)
	n.University = strings.ToLower(n.University)
	for i := range n.Interests {
		n.Interests[i] = strings.ToLower(n.Interests[i])
	}
	sort.Strings(n.Interests)
	b, _ := json.Marshal(n)
	sum := sha256.Sum256(b)
	return base + ":" + hex.EncodeToString(sum[:8])
}

// TokenKey holds the backend bearer token of one user. Written without expiry.
func TokenKey(userID int64) string {
	return userPrefix(userID) + "token"
}

func MatchesKey(userID int64) string {
	return userPrefix(userID) + "matches"
}

func OwnProfileKey(userID int64) string {
	return userPrefix(userID) + "own_profile"
}

func FlagKey(userID int64, flag string) string {
	return userPrefix(userID) + "flag:" + flag
}

// UnmatchedKey holds the profile ids the user removed from their matches.
// Written without expiry.
func UnmatchedKey(userID int64) string {
	return userPrefix(userID) + "unmatched"
}
