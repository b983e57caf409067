package auth

import (
	"net/http"

	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
	"github.com/oggyb/matchchat/internal/utils/validate"
)

const loggedOut = "You have successfully logged out!"

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserView is the public part of a user record.
type UserView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Gender         string `json:"gender"`
	Preference     string `json:"preference"`
	Location       string `json:"location,omitempty"`
	Bio            string `json:"bio,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type loginResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserView(u *db.User) UserView {
	return UserView{
		ID:             httpjson.FormatID(u.ID),
		Name:           u.Name,
		Email:          u.Email,
		Gender:         u.Gender,
		Preference:     u.Preference,
		Location:       u.Location,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
	}
}

// Handler exposes the auth service over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpjson.Error(w, r, err)
		return
	}

	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	user, token, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, loginResponse{User: toUserView(user), Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok {
		httpjson.Error(w, r, errNotAuthed)
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	if err := h.svc.Logout(ctx, id); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: loggedOut})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := FromContext(r.Context())
	if !ok {
		httpjson.Error(w, r, errNotAuthed)
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	if err := h.svc.LogoutAll(ctx, id.UserID); err != nil {
		httpjson.Error(w, r, svcErr.Map(err))
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: loggedOut})
}
