package telegram

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedInitData(t *testing.T, botToken string, authDate time.Time) string {
	t.Helper()
	vals := url.Values{}
	vals.Set("query_id", "AAH")
	vals.Set("user", `{"id":42,"first_name":"Ivan","username":"ivan"}`)
	vals.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	vals.Set("hash", Sign(vals, botToken))
	return vals.Encode()
}

func TestParse(t *testing.T) {
	raw := signedInitData(t, "bot-token", time.Now())
	data, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.User.ID)
	assert.Equal(t, "Ivan", data.User.DisplayName())
	assert.Equal(t, "AAH", data.QueryID)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInitDataEmpty)

	_, err = Parse("auth_date=1")
	assert.ErrorIs(t, err, ErrInitDataNoUser)

	_, err = Parse("user=%7Bnot-json")
	assert.ErrorIs(t, err, ErrInitDataMalformed)
}

func TestValidator(t *testing.T) {
	now := time.Now()
	v := NewValidator("bot-token", time.Hour)
	v.now = func() time.Time { return now }

	_, err := v.Validate(signedInitData(t, "bot-token", now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = v.Validate(signedInitData(t, "other-token", now))
	assert.ErrorIs(t, err, ErrInitDataSignature)

	_, err = v.Validate(signedInitData(t, "bot-token", now.Add(-2*time.Hour)))
	assert.ErrorIs(t, err, ErrInitDataExpired)
}

func TestValidator_DisabledOnlyParses(t *testing.T) {
	v := NewValidator("", 0)
	assert.False(t, v.Enabled())

	data, err := v.Validate(signedInitData(t, "whatever", time.Unix(0, 0)))
	require.NoError(t, err)
	assert.Equal(t, int64(42), data.User.ID)
}
