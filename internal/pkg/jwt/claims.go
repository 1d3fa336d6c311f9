package jwt

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("token invalid")

// Claims is the part of a StudNet backend token the client cares about. The
// backend writes user_id as a string; numbers are accepted too.
type Claims struct {
	UserID string `json:"-"`

	jwtlib.RegisteredClaims
}

type rawClaims struct {
	UserID any `json:"user_id"`

	jwtlib.RegisteredClaims
}

// Inspect decodes a token without verifying its signature. The client does
// not hold the signing secret; it only needs the expiry and subject.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenInvalid
	}

	p := jwtlib.NewParser()
	var rc rawClaims
	if _, _, err := p.ParseUnverified(token, &rc); err != nil {
		return Claims{}, ErrTokenInvalid
	}

	c := Claims{RegisteredClaims: rc.RegisteredClaims}
	switch v := rc.UserID.(type) {
	case string:
		c.UserID = v
	case float64:
		c.UserID = strconv.FormatInt(int64(v), 10)
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}
	return c, nil
}

// ExpiresWithin reports whether the token expires before now+skew. Tokens
// without an exp claim never expire; undecodable tokens count as expired.
func ExpiresWithin(token string, now time.Time, skew time.Duration) bool {
	c, err := Inspect(token)
	if err != nil {
		return true
	}
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Add(skew).Before(c.ExpiresAt.Time)
}
