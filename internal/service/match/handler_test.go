package match_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/service/auth"
	"github.com/oggyb/matchchat/internal/service/match"
)

// asUser stands in for auth.RequireAuth: the X-User header becomes the caller.
func asUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.Header.Get("X-User"), 10, 64)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: id})))
	})
}

func newRouter(t *testing.T) (http.Handler, *match.Service) {
	t.Helper()
	svc, _, _ := setupService(t)
	r := chi.NewRouter()
	match.NewRegistrar(svc, asUser).RegisterRoutes(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, user string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLikeRoute(t *testing.T) {
	h, _ := newRouter(t)

	rec, body := do(t, h, http.MethodPost, "/match/like/2", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "User liked successfully.", body["message"])
	assert.Equal(t, false, body["matched"])

	rec, body = do(t, h, http.MethodPost, "/match/like/1", "2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["matched"])

	rec, body = do(t, h, http.MethodPost, "/match/like/2", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Already liked this user.", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/match/like/1", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/match/like/999", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Profile not found.", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/match/like/abc", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/match/like/2", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMatchesRoute(t *testing.T) {
	h, svc := newRouter(t)
	ctx := context.Background()

	_, err := svc.Like(ctx, 1, 3)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)

	rec, body := do(t, h, http.MethodGet, "/match/matches", "3")
	require.Equal(t, http.StatusOK, rec.Code)
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	m := matches[0].(map[string]any)
	assert.Equal(t, "1", m["id"])
	assert.Equal(t, "alice", m["name"])
	assert.Equal(t, []any{"alice.jpg"}, m["photos"])

	rec, body = do(t, h, http.MethodGet, "/match/liked-you/count", "2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}

func TestDislikeRoute(t *testing.T) {
	h, _ := newRouter(t)

	rec, body := do(t, h, http.MethodPost, "/match/dislike/3", "2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User disliked successfully.", body["message"])
	_, hasMatched := body["matched"]
	assert.False(t, hasMatched)

	rec, body = do(t, h, http.MethodPost, "/match/dislike/3", "2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Already disliked this user.", body["error"])
}

func TestLikedYouRoute(t *testing.T) {
	h, svc := newRouter(t)
	ctx := context.Background()

	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)

	rec, body := do(t, h, http.MethodGet, "/match/liked-you?limit=1", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["likers"], 1)
	cursor, ok := body["nextCursor"].(string)
	require.True(t, ok)

	rec, body = do(t, h, http.MethodGet, "/match/liked-you?limit=1&cursor="+cursor, "1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["likers"], 1)
	assert.Nil(t, body["nextCursor"])

	rec, _ = do(t, h, http.MethodGet, "/match/liked-you?cursor=***", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
