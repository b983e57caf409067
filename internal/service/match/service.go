package match

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/app"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/logger"
	"github.com/oggyb/matchchat/internal/repository"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

var errProfileNotFound = svcErr.NotFound("Profile not found.")

// Service is the matching engine: likes, dislikes and the symmetric match
// set built from mutual likes. It sits on top of the profile repository and
// the Redis caches.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
}

// NewService creates a new match service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via ProfileRepository)
//   - RedisCache for the match set and liked-you counters
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// LikeResult reports whether the like completed a new match.
type LikeResult struct {
	Matched bool
}

// MatchSummary is a matched user resolved for display.
type MatchSummary struct {
	UserID    uint64
	Name      string
	Email     string
	Photos    []string
	MatchedAt time.Time
}

// Liker is one pending "liked you" entry.
type Liker struct {
	UserID  uint64
	LikedAt time.Time
}

// Like adds targetID to actorID's likes and forms a match when the like is
// mutual.
//
// Behavior:
//   - Self-likes fail with InvalidOperation, missing profiles with NotFound,
//     repeated likes with AlreadyLiked. None of them change state.
//   - Both profile rows are locked in ascending id order, so two users
//     liking each other at the same time serialize and exactly one of them
//     sees the reverse like.
//   - The like and both match rows commit together or not at all.
//   - Caches are updated only after commit, best-effort.
//
// Example:
//
//	svc.Like(ctx, 1, 2) // LikeResult{Matched: true} if 2 already liked 1
func (s *Service) Like(ctx context.Context, actorID, targetID uint64) (LikeResult, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("Like called", "actor", actorID, "target", targetID)

	if actorID == targetID {
		s.decision("like", svcErr.KindInvalidOperation)
		return LikeResult{}, svcErr.InvalidOperation("You cannot like yourself.")
	}

	var (
		res        LikeResult
		hiddenLike bool // target has disliked actor, so the like is not pending for them
		wasPending bool // target's like on actor was counted in actor's liked-you
	)
	err := s.profiles.Transaction(ctx, func(tx *repository.ProfileRepository) error {
		n, err := tx.LockPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if n < 2 {
			return errProfileNotFound
		}

		liked, err := tx.HasLiked(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if liked {
			return svcErr.AlreadyLiked("Already liked this user.")
		}
		if err := tx.AddLike(ctx, actorID, targetID); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return svcErr.AlreadyLiked("Already liked this user.")
			}
			return err
		}

		// check if target also liked actor → mutual
		mutual, err := tx.HasLiked(ctx, targetID, actorID)
		if err != nil {
			return err
		}
		if mutual {
			disliked, err := tx.HasDisliked(ctx, actorID, targetID)
			if err != nil {
				return err
			}
			res.Matched, err = tx.AddMatch(ctx, actorID, targetID)
			wasPending = res.Matched && !disliked
			return err
		}

		hiddenLike, err = tx.HasDisliked(ctx, targetID, actorID)
		return err
	})
	if err != nil {
		err = svcErr.Map(err)
		s.decision("like", svcErr.KindOf(err))
		if svcErr.KindOf(err) == svcErr.KindServerError {
			log.Error("Like failed", "actor", actorID, "target", targetID, "err", err)
		}
		return LikeResult{}, err
	}

	s.decision("like", "ok")

	// update caches
	rc := s.appCtx.RedisCache
	switch {
	case res.Matched:
		s.appCtx.Metrics.MatchesFormed.Inc()
		if err := rc.RememberMatch(ctx, actorID, targetID); err != nil {
			log.Warn("RememberMatch failed", "err", err)
		}
		if wasPending {
			_ = rc.DecrLikeCount(ctx, actorID)
		}
	case !hiddenLike:
		_ = rc.IncrLikeCount(ctx, targetID)
	}

	log.Debug("Like result", "actor", actorID, "target", targetID, "matched", res.Matched)
	return res, nil
}

// Dislike adds targetID to actorID's dislikes. Likes and matches are left
// untouched.
func (s *Service) Dislike(ctx context.Context, actorID, targetID uint64) error {
	log := logger.FromContext(ctx, s.appCtx.Logger)
	log.Debug("Dislike called", "actor", actorID, "target", targetID)

	if actorID == targetID {
		s.decision("dislike", svcErr.KindInvalidOperation)
		return svcErr.InvalidOperation("You cannot dislike yourself.")
	}

	var wasPending bool
	err := s.profiles.Transaction(ctx, func(tx *repository.ProfileRepository) error {
		n, err := tx.LockPair(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if n < 2 {
			return errProfileNotFound
		}

		disliked, err := tx.HasDisliked(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if disliked {
			return svcErr.AlreadyDisliked("Already disliked this user.")
		}
		if err := tx.AddDislike(ctx, actorID, targetID); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return svcErr.AlreadyDisliked("Already disliked this user.")
			}
			return err
		}

		// a pending like from target drops out of actor's liked-you list
		likedBack, err := tx.HasLiked(ctx, targetID, actorID)
		if err != nil || !likedBack {
			return err
		}
		matched, err := tx.IsMatched(ctx, actorID, targetID)
		wasPending = !matched
		return err
	})
	if err != nil {
		err = svcErr.Map(err)
		s.decision("dislike", svcErr.KindOf(err))
		if svcErr.KindOf(err) == svcErr.KindServerError {
			log.Error("Dislike failed", "actor", actorID, "target", targetID, "err", err)
		}
		return err
	}

	s.decision("dislike", "ok")
	if wasPending {
		_ = s.appCtx.RedisCache.DecrLikeCount(ctx, actorID)
	}
	return nil
}

// GetMatches resolves userID's match set in insertion order.
func (s *Service) GetMatches(ctx context.Context, userID uint64) ([]MatchSummary, error) {
	s.appCtx.Logger.Debug("GetMatches called", "user", userID)

	ok, err := s.profiles.Exists(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !ok {
		return nil, errProfileNotFound
	}

	rows, err := s.profiles.ListMatches(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Error("ListMatches failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	out := make([]MatchSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, MatchSummary(r))
	}
	return out, nil
}

// IsMatched reports whether a and b are matched.
// Cache-first strategy:
//  1. Checks the Redis match set (matches:<a>).
//  2. On a miss, asks the DB.
//  3. A positive DB answer is written back; negatives are never cached
//     because they can change with the next like.
func (s *Service) IsMatched(ctx context.Context, a, b uint64) (bool, error) {
	if a == 0 || b == 0 || a == b {
		return false, nil
	}

	rc := s.appCtx.RedisCache
	cached, err := rc.IsMatchCached(ctx, a, b)
	if err != nil {
		s.appCtx.Logger.Warn("match cache unavailable", "err", err)
	}
	if cached {
		s.appCtx.Metrics.CacheHits.WithLabelValues("matches").Inc()
		return true, nil
	}
	s.appCtx.Metrics.CacheMisses.WithLabelValues("matches").Inc()

	matched, err := s.profiles.IsMatched(ctx, a, b)
	if err != nil {
		return false, svcErr.Map(err)
	}
	if matched {
		_ = rc.RememberMatch(ctx, a, b)
	}
	return matched, nil
}

// ListLikedYou returns users who liked userID and are neither matched with
// nor disliked by them, newest first.
//
// Example:
//
//	svc.ListLikedYou(ctx, 42, nil, 20)
func (s *Service) ListLikedYou(ctx context.Context, userID uint64, token *string, limit int) ([]Liker, *string, error) {
	s.appCtx.Logger.Debug("ListLikedYou called", "recipient", userID, "token", token)

	if token != nil {
		if _, err := pagination.Decode(*token); err != nil {
			return nil, nil, svcErr.InvalidArgument("invalid pagination token")
		}
	}

	likes, next, err := s.profiles.GetLikers(ctx, userID, token, pagination.ClampLimit(limit))
	if err != nil {
		s.appCtx.Logger.Error("GetLikers failed", "err", err)
		return nil, nil, svcErr.Map(err)
	}

	out := make([]Liker, 0, len(likes))
	for _, l := range likes {
		out = append(out, Liker{UserID: l.ActorID, LikedAt: l.CreatedAt})
	}
	return out, next, nil
}

// CountLikedYou counts the ListLikedYou set.
// Cache-first strategy:
//  1. Attempts to read from Redis (likedyou:count:<id>).
//  2. On a miss falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64) (int64, error) {
	s.appCtx.Logger.Debug("CountLikedYou called", "recipient", userID)

	rc := s.appCtx.RedisCache
	if n, hit, err := rc.GetLikeCount(ctx, userID); err == nil && hit {
		s.appCtx.Metrics.CacheHits.WithLabelValues("likedyou").Inc()
		return n, nil
	}
	s.appCtx.Metrics.CacheMisses.WithLabelValues("likedyou").Inc()

	// fallback: DB
	count, err := s.profiles.CountLikers(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}

	_ = rc.SetLikeCount(ctx, userID, count)
	return count, nil
}

func (s *Service) decision(action string, result svcErr.Kind) {
	s.appCtx.Metrics.Decisions.WithLabelValues(action, string(result)).Inc()
}
