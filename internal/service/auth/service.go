package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/repository"
)

const defaultTokenTTL = time.Hour

var (
	errBadCredentials = svcErr.Unauthenticated("You have entered an invalid email or password")
	errNotAuthed      = svcErr.Unauthenticated("Please authenticate.")
)

// Identity is the caller a bearer token resolves to.
type Identity struct {
	UserID  uint64
	TokenID string
}

// Verifier resolves a bearer credential to a known user. The HTTP middleware
// and the socket handshake share it.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Service issues and verifies JWTs. Every issued token id is recorded in
// Redis so logout can revoke it before it expires.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates the auth service from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	ttl := defaultTokenTTL
	var secret []byte
	if appCtx.Config != nil {
		secret = []byte(appCtx.Config.Auth.JWTSecret)
		if appCtx.Config.Auth.TokenTTL > 0 {
			ttl = appCtx.Config.Auth.TokenTTL
		}
	}
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login checks the credentials and issues a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*db.User, string, error) {
	s.appCtx.Logger.Debug("Login called", "email", email)

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", errBadCredentials
	} else if err != nil {
		return nil, "", svcErr.Map(err)
	}
	if !user.Active {
		return nil, "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", errBadCredentials
	}

	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.appCtx.Logger.Warn("TouchLastLogin failed", "user", user.ID, "err", err)
	}
	return user, token, nil
}

// IssueToken signs an HS256 token for userID and registers its id.
func (s *Service) IssueToken(ctx context.Context, userID uint64) (string, error) {
	now := s.now()
	tokenID := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		ID:        tokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", svcErr.ServerError("sign token", err)
	}
	if err := s.appCtx.RedisCache.SaveSession(ctx, userID, tokenID, s.ttl); err != nil {
		return "", svcErr.ServerError("save session", err)
	}
	return signed, nil
}

// Verify implements Verifier.
//
// Behavior:
//   - Signature, algorithm and expiry are checked first.
//   - The token id must still be registered (not logged out).
//   - The subject must be an existing, active user.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errNotAuthed
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, errNotAuthed
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return Identity{}, errNotAuthed
	}

	sessionUser, ok, err := s.appCtx.RedisCache.SessionUser(ctx, claims.ID)
	if err != nil {
		return Identity{}, svcErr.ServerError("load session", err)
	}
	if !ok || sessionUser != userID {
		return Identity{}, errNotAuthed
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, errNotAuthed
	} else if err != nil {
		return Identity{}, svcErr.Map(err)
	}
	if !user.Active {
		return Identity{}, errNotAuthed
	}

	return Identity{UserID: userID, TokenID: claims.ID}, nil
}

// Logout revokes the token the caller used.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	if err := s.appCtx.RedisCache.DeleteSession(ctx, id.UserID, id.TokenID); err != nil {
		return svcErr.ServerError("delete session", err)
	}
	return nil
}

// LogoutAll revokes every token of userID.
func (s *Service) LogoutAll(ctx context.Context, userID uint64) error {
	if err := s.appCtx.RedisCache.DeleteAllSessions(ctx, userID); err != nil {
		return svcErr.ServerError("delete sessions", err)
	}
	return nil
}
