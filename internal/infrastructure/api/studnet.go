package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"studnet/internal/domain/profile"
)

// AuthRequest is the identity exchange. InitData travels in the
// "Authorization: tma" header; UserID/DevMode in the body.
type AuthRequest struct {
	InitData string
	UserID   int64
	DevMode  bool
}

type authBody struct {
	UserID  int64 `json:"user_id"`
	DevMode bool  `json:"dev_mode"`
}

type authResponse struct {
	Token string `json:"token"`
	JWT   string `json:"jwt"`
}

// ProfileQuery selects a page of candidates.
type ProfileQuery struct {
	UserID int64
	Page   int
	Size   int
	Filter profile.Filter
}

func (q ProfileQuery) values() url.Values {
	v := url.Values{}
	v.Set("user_id", strconv.FormatInt(q.UserID, 10))
	v.Set("page", strconv.Itoa(max(q.Page, 0)))
	size := q.Size
	if size <= 0 {
		size = 50
	}
	if size > 100 {
		size = 100
	}
	v.Set("size", strconv.Itoa(size))

	f := q.Filter.Normalized()
	if f.City != "" {
		v.Set("city", f.City)
	}
	if f.University != "" {
		v.Set("university", f.University)
	}
	if len(f.Interests) > 0 {
		v.Set("interests", strings.Join(f.Interests, ","))
	}
	return v
}

// LikeResult is the backend's answer to a like or an accepted incoming like.
type LikeResult struct {
	Matched bool   `json:"matched"`
	Message string `json:"message"`
}

type RespondAction string

const (
	RespondAccept  RespondAction = "accept"
	RespondDecline RespondAction = "decline"
)

type respondBody struct {
	TargetUserID int64         `json:"targetUserId"`
	Action       RespondAction `json:"action"`
}

type swipeBody struct {
	UserID int64 `json:"user_id"`
}

var errEmptyToken = errors.New("auth response without token")

func (c *Client) Authenticate(ctx context.Context, in AuthRequest) (string, error) {
	r := request{method: http.MethodPost, path: "/api/auth"}
	if in.InitData != "" {
		r.header = http.Header{}
		r.header.Set("Authorization", "tma "+in.InitData)
	}
	if in.UserID > 0 {
		r.body = authBody{UserID: in.UserID, DevMode: in.DevMode}
	}

	var out authResponse
	if err := c.do(ctx, r, &out); err != nil {
		return "", err
	}
	tok := strings.TrimSpace(out.Token)
	if tok == "" {
		tok = strings.TrimSpace(out.JWT)
	}
	if tok == "" {
		return "", errEmptyToken
	}
	return tok, nil
}

// ListProfiles fetches one page of swipe candidates. Identical concurrent
// queries share a single round trip.
func (c *Client) ListProfiles(ctx context.Context, q ProfileQuery) ([]profile.Profile, error) {
	vals := q.values()
	key := "profiles?" + vals.Encode()
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		var recs []profile.Record
		err := c.do(ctx, request{method: http.MethodGet, path: "/api/profiles", query: vals, authed: true}, &recs)
		return recs, err
	})
	if err != nil {
		return nil, err
	}
	return profile.NormalizeAll(v.([]profile.Record), c.baseURL), nil
}

func (c *Client) IncomingLikes(ctx context.Context, userID int64) ([]profile.Profile, error) {
	vals := url.Values{}
	vals.Set("user_id", strconv.FormatInt(userID, 10))
	v, err := c.shared(ctx, "incoming?"+vals.Encode(), func(ctx context.Context) (any, error) {
		var recs []profile.Record
		err := c.do(ctx, request{method: http.MethodGet, path: "/api/profiles/incoming-likes", query: vals, authed: true}, &recs)
		return recs, err
	})
	if err != nil {
		return nil, err
	}
	return profile.NormalizeAll(v.([]profile.Record), c.baseURL), nil
}

func (c *Client) Like(ctx context.Context, profileID, userID int64) (LikeResult, error) {
	var out LikeResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/profiles/" + strconv.FormatInt(profileID, 10) + "/like",
		body:   swipeBody{UserID: userID},
		authed: true,
	}, &out)
	return out, err
}

func (c *Client) Pass(ctx context.Context, profileID, userID int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/profiles/" + strconv.FormatInt(profileID, 10) + "/pass",
		body:   swipeBody{UserID: userID},
		authed: true,
	}, nil)
}

func (c *Client) RespondToLike(ctx context.Context, targetUserID int64, action RespondAction) (LikeResult, error) {
	var out LikeResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/profiles/respond-to-like",
		body:   respondBody{TargetUserID: targetUserID, Action: action},
		authed: true,
	}, &out)
	return out, err
}

func (c *Client) Matches(ctx context.Context) ([]profile.Profile, error) {
	v, err := c.shared(ctx, "matches", func(ctx context.Context) (any, error) {
		var recs []profile.Record
		err := c.do(ctx, request{method: http.MethodGet, path: "/api/matches", authed: true}, &recs)
		return recs, err
	})
	if err != nil {
		return nil, err
	}
	return profile.NormalizeAll(v.([]profile.Record), c.baseURL), nil
}

func (c *Client) ProfileByUserID(ctx context.Context, userID int64) (profile.Profile, error) {
	var rec profile.Record
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/profiles/user/" + strconv.FormatInt(userID, 10), authed: true}, &rec)
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Normalize(rec, c.baseURL), nil
}

func (c *Client) ProfileByID(ctx context.Context, id int64) (profile.Profile, error) {
	var rec profile.Record
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/profiles/" + strconv.FormatInt(id, 10), authed: true}, &rec)
	if err != nil {
		return profile.Profile{}, err
	}
	return profile.Normalize(rec, c.baseURL), nil
}
