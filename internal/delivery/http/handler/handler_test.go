package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studnet/internal/config"
	"studnet/internal/delivery/http/dto"
	"studnet/internal/delivery/http/middleware"
	"studnet/internal/infrastructure/cache"
	"studnet/internal/pkg/response"
	"studnet/internal/session"
	"studnet/internal/store"
	"studnet/internal/view"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("/api/matches", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":2,"user_id":20,"name":"Boris","interests":[],"goals":[]}]`))
	})
	// One handler for the subtree: "{id}/like" and "user/{id}" overlap as
	// ServeMux patterns.
	mux.HandleFunc("/api/profiles/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/profiles/"), "/")
		switch {
		case len(parts) == 1 && parts[0] == "incoming-likes":
			_, _ = w.Write([]byte(`[]`))
		case len(parts) == 2 && parts[0] == "user":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Profile not found"}`))
		case len(parts) == 2 && parts[1] == "like":
			_, _ = w.Write([]byte(`{"matched":false}`))
		case len(parts) == 2 && parts[1] == "pass":
			_, _ = w.Write([]byte(`{}`))
		case len(parts) == 1 && parts[0] == "3":
			_, _ = w.Write([]byte(`{"id":3,"user_id":30,"name":"Clara","city":"Kazan","interests":[],"goals":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/api/profiles", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"user_id":10,"name":"Anna","interests":[],"goals":[]},
			{"id":2,"user_id":20,"name":"Boris","interests":[],"goals":[]},
			{"id":3,"user_id":30,"name":"Clara","interests":[],"goals":[]}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*fiber.App, *session.Session) {
	t.Helper()
	srv := fakeBackend(t)
	cfg := config.Config{
		API:      config.APIConfig{BaseURL: srv.URL, RequestTimeout: time.Second},
		Telegram: config.TelegramConfig{DemoMode: true, DemoUserID: 77},
		Cache:    config.CacheConfig{ProfilesTTL: time.Minute, MatchesTTL: time.Minute, OwnProfileTTL: time.Minute},
		Swipe:    config.SwipeConfig{LoadTimeout: time.Second, Threshold: 100, FadeDistance: 300},
	}
	m := session.NewManager(cfg, store.NewLocal(cache.NewMemory(), nil), nil, nil)
	t.Cleanup(m.Close)

	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)
	<-s.Engine.Settled()

	app := fiber.New()
	app.Use(middleware.NewErrorMiddleware(nil).Middleware())
	app.Get("/health", NewHealthHandler(m).Check)

	api := app.Group("/api/v1", func(c fiber.Ctx) error {
		if c.Get("X-No-Session") == "" {
			c.Locals(middleware.CtxSessionKey, s)
		}
		return c.Next()
	})
	NewSessionHandler().RegisterRoutes(api)
	NewSwipeHandler(time.Second).RegisterRoutes(api)
	NewMatchHandler().RegisterRoutes(api)
	NewProfileHandler().RegisterRoutes(api)
	return app, s
}

func call(t *testing.T, app *fiber.App, method, path, body string, hdr ...string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	status, env := call(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"sessions":1`)
}

func TestSessionHandler_Me(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/api/v1/session", "")
	require.Equal(t, http.StatusOK, status)
	res := decode[dto.SessionResponse](t, env.Data)
	assert.Equal(t, int64(77), res.UserID)
	assert.True(t, res.Demo)
	assert.True(t, res.HasToken)

	status, _ = call(t, app, http.MethodGet, "/api/v1/session", "", "X-No-Session", "1")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSwipeHandler_DecisionFlow(t *testing.T) {
	app, s := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/api/v1/swipe?wait=true", "")
	require.Equal(t, http.StatusOK, status)
	v := decode[view.CardView](t, env.Data)
	require.NotNil(t, v.Card)
	assert.Equal(t, "Anna", v.Card.Title)
	assert.Equal(t, 2, v.Remaining)
	assert.True(t, v.ShowTutorial)

	status, env = call(t, app, http.MethodPost, "/api/v1/swipe/decision", `{"decision":"like"}`)
	require.Equal(t, http.StatusOK, status)
	res := decode[dto.ActionResponse](t, env.Data)
	assert.True(t, res.Accepted)
	require.NotNil(t, res.View.Exiting)
	assert.Equal(t, "Anna", res.View.Exiting.Title)

	// The guard holds until the exit completes.
	status, env = call(t, app, http.MethodPost, "/api/v1/swipe/decision", `{"decision":"pass"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, response.MessageIgnored, env.Message)
	assert.False(t, decode[dto.ActionResponse](t, env.Data).Accepted)

	status, env = call(t, app, http.MethodPost, "/api/v1/swipe/exit-complete", "")
	require.Equal(t, http.StatusOK, status)
	res = decode[dto.ActionResponse](t, env.Data)
	assert.True(t, res.Accepted)
	require.NotNil(t, res.View.Card)
	assert.Equal(t, "Clara", res.View.Card.Title)

	status, _ = call(t, app, http.MethodPost, "/api/v1/swipe/decision", `{"decision":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Equal(t, 1, len(s.Engine.Snapshot().Queue))
}

func TestSwipeHandler_Gesture(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodPost, "/api/v1/swipe/gesture", `{"phase":"down","x":10,"y":10}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dto.GestureResponse](t, env.Data).Accepted)

	_, env = call(t, app, http.MethodPost, "/api/v1/swipe/gesture", `{"phase":"move","x":-140,"y":20}`)
	g := decode[dto.GestureResponse](t, env.Data)
	assert.InDelta(t, -150, g.View.OffsetX, 0.001)
	assert.InDelta(t, 0.5, g.View.Opacity, 0.001)

	_, env = call(t, app, http.MethodPost, "/api/v1/swipe/gesture", `{"phase":"up","x":-140,"y":20}`)
	g = decode[dto.GestureResponse](t, env.Data)
	assert.True(t, g.Accepted)
	assert.Equal(t, "pass", g.Decision)

	status, _ = call(t, app, http.MethodPost, "/api/v1/swipe/gesture", `{"phase":"hover"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSwipeHandler_TabFilterAndOverlays(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := call(t, app, http.MethodPost, "/api/v1/swipe/tab", `{"tab":"elsewhere"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := call(t, app, http.MethodPost, "/api/v1/swipe/tab", `{"tab":"incoming"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dto.ActionResponse](t, env.Data).Accepted)

	_, env = call(t, app, http.MethodGet, "/api/v1/swipe?wait=true", "")
	v := decode[view.CardView](t, env.Data)
	assert.Equal(t, "incoming", string(v.Tab))
	assert.True(t, v.Empty)
	assert.True(t, v.ShowIncomingTip)

	_, env = call(t, app, http.MethodPost, "/api/v1/overlays/dismiss", `{"overlay":"incoming_tip"}`)
	assert.False(t, decode[dto.ActionResponse](t, env.Data).View.ShowIncomingTip)

	status, _ = call(t, app, http.MethodPost, "/api/v1/overlays/dismiss", `{"overlay":"banner"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPut, "/api/v1/swipe/filter", `{"city":"Kazan"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/swipe/scroll", `{"offset":-1}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMatchHandler(t *testing.T) {
	app, s := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/api/v1/matches", "")
	require.Equal(t, http.StatusOK, status)
	res := decode[dto.MatchesResponse](t, env.Data)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(2), res.Matches[0].ProfileID)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/matches/2", "")
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, s.Registry.Contains(2))

	status, _ = call(t, app, http.MethodDelete, "/api/v1/matches/2", "")
	assert.Equal(t, http.StatusNotFound, status)

	// The backend still lists 2; the refresh keeps it unmatched.
	status, env = call(t, app, http.MethodGet, "/api/v1/matches", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[dto.MatchesResponse](t, env.Data).Matches)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/matches/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProfileHandler(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := call(t, app, http.MethodGet, "/api/v1/profile/me", "")
	require.Equal(t, http.StatusOK, status)
	own := decode[dto.OwnProfileResponse](t, env.Data)
	assert.False(t, own.Exists)
	assert.Nil(t, own.Card)

	status, env = call(t, app, http.MethodGet, "/api/v1/profiles/3", "")
	require.Equal(t, http.StatusOK, status)
	card := decode[view.Card](t, env.Data)
	assert.Equal(t, "Clara", card.Title)
	assert.Equal(t, "Kazan", card.Subtitle)

	status, _ = call(t, app, http.MethodGet, "/api/v1/profiles/9", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/profiles/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}
