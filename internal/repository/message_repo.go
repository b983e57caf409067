package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

// MessageRepository is the append-only message log, partitioned by the
// unordered pair {sender, receiver}.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// ConversationRow summarizes all messages between a viewer and one counterpart.
type ConversationRow struct {
	CounterpartID   uint64
	CounterpartName string
	MessageCount    int64
	Last            db.Message
}

type conversationScan struct {
	CounterpartID uint64
	MessageCount  int64
}

// Append stores msg.
//
// Behavior:
//   - PairKey is derived from sender/receiver.
//   - SentAt is clamped so it never goes below the pair's latest message,
//     keeping timestamps non-decreasing per conversation.
//   - The latest message is read FOR UPDATE, so concurrent appends to one
//     pair commit in sent_at order.
//   - Seq is assigned by the database and records insertion order.
func (r *MessageRepository) Append(ctx context.Context, msg *db.Message) error {
	msg.PairKey = db.PairKey(msg.SenderID, msg.ReceiverID)
	msg.SentAt = msg.SentAt.UTC().Truncate(time.Millisecond)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last db.Message
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("seq", "sent_at").
			Where("pair_key = ?", msg.PairKey).
			Order("sent_at DESC, seq DESC").
			Take(&last).Error
		switch {
		case err == nil:
			if msg.SentAt.Before(last.SentAt) {
				msg.SentAt = last.SentAt
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(msg).Error
	})
}

// History returns every message between a and b, oldest first
// (sent_at ASC, ties by insertion order). The result is the same for either
// argument order.
func (r *MessageRepository) History(ctx context.Context, a, b uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", db.PairKey(a, b)).
		Order("sent_at ASC, seq ASC").
		Find(&msgs).Error
	return msgs, err
}

// HistoryPage is History with cursor-based pagination in the same order.
//
// Example:
//
//	repo.HistoryPage(ctx, 1, 2, nil, 50) // first 50 messages of the 1↔2 thread
func (r *MessageRepository) HistoryPage(
	ctx context.Context,
	a, b uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("pair_key = ?", db.PairKey(a, b)).
		Order("sent_at ASC, seq ASC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where("(sent_at > ? OR (sent_at = ? AND seq > ?))", ts, ts, cursor.Key)
	}

	var msgs []db.Message
	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			Key:       last.Seq,
			UnixMilli: last.SentAt.UnixMilli(),
		})
		nextToken = &token
		msgs = msgs[:limit]
	}
	return msgs, nextToken, nil
}

// Conversations groups every message involving viewer by counterpart.
//
// Behavior:
//   - One row per counterpart with the message count and the latest message,
//     latest meaning highest (sent_at, seq).
//   - Ordered by latest sent_at DESC, ties by latest seq DESC.
func (r *MessageRepository) Conversations(ctx context.Context, viewerID uint64) ([]ConversationRow, error) {
	var groups []conversationScan
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select(
			"CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS counterpart_id, "+
				"COUNT(*) AS message_count",
			viewerID,
		).
		Where("sender_id = ? OR receiver_id = ?", viewerID, viewerID).
		Group("counterpart_id").
		Scan(&groups).Error
	if err != nil || len(groups) == 0 {
		return nil, err
	}

	counterpartIDs := make([]uint64, 0, len(groups))
	for _, g := range groups {
		counterpartIDs = append(counterpartIDs, g.CounterpartID)
	}

	var lastMsgs []db.Message
	err = r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", viewerID, viewerID).
		Where(`seq = (
			SELECT m2.seq FROM messages m2
			WHERE m2.pair_key = messages.pair_key
			ORDER BY m2.sent_at DESC, m2.seq DESC
			LIMIT 1
		)`).
		Find(&lastMsgs).Error
	if err != nil {
		return nil, err
	}
	byCounterpart := make(map[uint64]db.Message, len(lastMsgs))
	for _, m := range lastMsgs {
		other := m.SenderID
		if other == viewerID {
			other = m.ReceiverID
		}
		byCounterpart[other] = m
	}

	var users []db.User
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	rows := make([]ConversationRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, ConversationRow{
			CounterpartID:   g.CounterpartID,
			CounterpartName: names[g.CounterpartID],
			MessageCount:    g.MessageCount,
			Last:            byCounterpart[g.CounterpartID],
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Last.SentAt.Equal(rows[j].Last.SentAt) {
			return rows[i].Last.SentAt.After(rows[j].Last.SentAt)
		}
		return rows[i].Last.Seq > rows[j].Last.Seq
	})
	return rows, nil
}
