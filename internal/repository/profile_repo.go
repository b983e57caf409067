package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

// ProfileRepository provides data access for a profile and its like,
// dislike and match sets.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// MatchRow is a matched user resolved for display.
type MatchRow struct {
	UserID    uint64
	Name      string
	Email     string
	Photos    []string
	MatchedAt time.Time
}

type matchScan struct {
	UserID     uint64
	Name       string
	Email      string
	PhotosJSON *string
	MatchedAt  time.Time
}

// Transaction runs fn against a repository bound to a single DB transaction.
// Returning an error from fn rolls everything back.
func (r *ProfileRepository) Transaction(ctx context.Context, fn func(tx *ProfileRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProfileRepository{db: tx})
	})
}

// Exists reports whether a profile row exists for userID.
func (r *ProfileRepository) Exists(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// LockPair locks the profile rows of a and b (SELECT … FOR UPDATE) in
// ascending user id order and returns how many of them exist.
//
// Behavior:
//   - Must run inside Transaction; locks are held until commit/rollback.
//   - A fixed lock order keeps two opposite likes (a→b, b→a) from deadlocking;
//     the second one waits and then sees the first one's committed like.
//   - SQLite has no row locks; the dialect drops the clause and the single
//     writer connection gives the same serialization.
func (r *ProfileRepository) LockPair(ctx context.Context, a, b uint64) (int, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("user_id").
		Where("user_id IN ?", []uint64{lo, hi}).
		Order("user_id ASC").
		Find(&profiles).Error
	return len(profiles), err
}

// HasLiked checks whether actor's likes set contains target.
// Used for both the duplicate guard and the mutual-like check in Like.
func (r *ProfileRepository) HasLiked(ctx context.Context, actorID, targetID uint64) (bool, error) {
	return r.exists(ctx, &db.Like{}, "actor_id = ? AND target_id = ?", actorID, targetID)
}

// HasDisliked checks whether actor's dislikes set contains target.
func (r *ProfileRepository) HasDisliked(ctx context.Context, actorID, targetID uint64) (bool, error) {
	return r.exists(ctx, &db.Dislike{}, "actor_id = ? AND target_id = ?", actorID, targetID)
}

// IsMatched checks whether b is in a's matches set. Symmetry means the
// reverse row exists too.
func (r *ProfileRepository) IsMatched(ctx context.Context, a, b uint64) (bool, error) {
	return r.exists(ctx, &db.Match{}, "user_id = ? AND matched_user_id = ?", a, b)
}

// AddLike appends target to actor's likes. The composite PK rejects duplicates
// with gorm.ErrDuplicatedKey.
func (r *ProfileRepository) AddLike(ctx context.Context, actorID, targetID uint64) error {
	return r.db.WithContext(ctx).Create(&db.Like{ActorID: actorID, TargetID: targetID}).Error
}

// AddDislike appends target to actor's dislikes.
func (r *ProfileRepository) AddDislike(ctx context.Context, actorID, targetID uint64) error {
	return r.db.WithContext(ctx).Create(&db.Dislike{ActorID: actorID, TargetID: targetID}).Error
}

// AddMatch writes both directions of the match a↔b.
//
// Behavior:
//   - Rows that already exist are left alone (insert-or-ignore), so replays
//     never produce duplicates.
//   - Returns true when at least one row was newly written.
func (r *ProfileRepository) AddMatch(ctx context.Context, a, b uint64) (bool, error) {
	rows := []db.Match{
		{UserID: a, MatchedUserID: b},
		{UserID: b, MatchedUserID: a},
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected > 0, res.Error
}

// ListMatches resolves userID's matches to display rows (name, email, photos),
// in insertion order.
func (r *ProfileRepository) ListMatches(ctx context.Context, userID uint64) ([]MatchRow, error) {
	var raw []matchScan
	err := r.db.WithContext(ctx).
		Table("matches m").
		Select("u.id AS user_id, u.name, u.email, p.photos AS photos_json, m.created_at AS matched_at").
		Joins("JOIN users u ON u.id = m.matched_user_id").
		Joins("LEFT JOIN profiles p ON p.user_id = m.matched_user_id").
		Where("m.user_id = ?", userID).
		Order("m.created_at ASC, m.matched_user_id ASC").
		Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	rows := make([]MatchRow, 0, len(raw))
	for _, m := range raw {
		row := MatchRow{UserID: m.UserID, Name: m.Name, Email: m.Email, MatchedAt: m.MatchedAt}
		if m.PhotosJSON != nil && *m.PhotosJSON != "" {
			// a bad photos column should not hide the match
			_ = json.Unmarshal([]byte(*m.PhotosJSON), &row.Photos)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GetLikers returns likes received by recipient that are still pending.
//
// Behavior:
//   - Only likes where target_id = recipient are considered.
//   - Excludes users already matched with the recipient.
//   - Excludes users the recipient disliked.
//   - Ordered by created_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, 42, nil, 20) // first 20 pending likers of user 42
func (r *ProfileRepository) GetLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.pendingLikers(ctx, recipientID).
		Select("l.actor_id, l.target_id, l.created_at").
		Order("l.created_at DESC, l.actor_id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.actor_id < ?))",
			ts, ts, cursor.Key,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			Key:       last.ActorID,
			UnixMilli: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers counts the same set GetLikers pages through.
// Used in conjunction with Redis cache (DB is fallback).
func (r *ProfileRepository) CountLikers(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.pendingLikers(ctx, recipientID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProfileRepository) pendingLikers(ctx context.Context, recipientID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ?", recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE m.user_id = ?
				  AND m.matched_user_id = l.actor_id
			)`, recipientID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM dislikes d
				WHERE d.actor_id = ?
				  AND d.target_id = l.actor_id
			)`, recipientID)
}

func (r *ProfileRepository) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(model).
		Where(query, args...).
		Count(&count).Error
	return count > 0, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
