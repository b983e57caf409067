package match

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/service/auth"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
)

type decisionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Matched *bool  `json:"matched,omitempty"`
}

type matchView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photos    []string  `json:"photos"`
	MatchedAt time.Time `json:"matchedAt"`
}

type likerView struct {
	UserID  string `json:"userId"`
	LikedAt int64  `json:"likedAt"`
}

type likedYouResponse struct {
	Likers     []likerView `json:"likers"`
	NextCursor *string     `json:"nextCursor,omitempty"`
}

// Handler exposes the match service over HTTP. Every route expects
// auth.RequireAuth in front of it.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	res, err := h.svc.Like(ctx, actorID, targetID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, decisionResponse{
		Success: true,
		Message: "User liked successfully.",
		Matched: &res.Matched,
	})
}

func (h *Handler) Dislike(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	if err := h.svc.Dislike(ctx, actorID, targetID); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, decisionResponse{Success: true, Message: "User disliked successfully."})
}

func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	matches, err := h.svc.GetMatches(ctx, userID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}

	out := make([]matchView, 0, len(matches))
	for _, m := range matches {
		photos := m.Photos
		if photos == nil {
			photos = []string{}
		}
		out = append(out, matchView{
			ID:        httpjson.FormatID(m.UserID),
			Name:      m.Name,
			Email:     m.Email,
			Photos:    photos,
			MatchedAt: m.MatchedAt,
		})
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"matches": out})
}

func (h *Handler) LikedYou(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	limit, err := httpjson.QueryInt(r, "limit")
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	likers, next, err := h.svc.ListLikedYou(ctx, userID, httpjson.QueryString(r, "cursor"), limit)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}

	resp := likedYouResponse{Likers: make([]likerView, 0, len(likers)), NextCursor: next}
	for _, l := range likers {
		resp.Likers = append(resp.Likers, likerView{
			UserID:  httpjson.FormatID(l.UserID),
			LikedAt: l.LikedAt.UnixMilli(),
		})
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (h *Handler) LikedYouCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	n, err := h.svc.CountLikedYou(ctx, userID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{"count": n})
}

// pair reads the caller and the {userId} path parameter.
func (h *Handler) pair(w http.ResponseWriter, r *http.Request) (uint64, uint64, bool) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return 0, 0, false
	}
	targetID, err := httpjson.ParseID("userId", chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return 0, 0, false
	}
	return actorID, targetID, true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		httpjson.Error(w, r, svcErr.Unauthenticated("Please authenticate."))
	}
	return id, ok
}
