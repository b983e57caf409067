package db

import (
	"fmt"
	"time"
)

// User table. Owned by the account system; the match and message code only
// references it by ID.
type User struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"size:128;not null"`
	Email          string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash   string `gorm:"size:255;not null"`
	Gender         string `gorm:"size:16;not null"`
	Preference     string `gorm:"size:16;not null;default:everyone"`
	Location       string `gorm:"size:128"`
	DOB            time.Time
	Bio            string `gorm:"size:1024"`
	ProfilePicture string `gorm:"size:512"`
	Active         bool   `gorm:"default:true"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Profile is the 1:1 like/dislike/match state of a user. The row itself only
// carries display data; the sets live in likes, dislikes and matches. It is
// the lock target when two profiles are updated together.
type Profile struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	Bio       string    `gorm:"size:1024"`
	Photos    []string  `gorm:"serializer:json;type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Like is one entry of the actor's likes set.
//
// Composite PK: (ActorID, TargetID), so the set never holds duplicates.
// idx_like_target speeds up "who liked me" and the reverse-like lookup.
type Like struct {
	ActorID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_like_target"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_like_target"`
}

// Dislike is one entry of the actor's dislikes set.
type Dislike struct {
	ActorID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is one direction of a symmetric match. Both directions are always
// written in the same transaction.
type Match struct {
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	MatchedUserID uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Message is an immutable direct message. Seq records insertion order and
// breaks ties between equal SentAt values.
//
// Indexes:
//   - idx_message_pair(pair_key, sent_at): history reads for a pair.
//   - idx_message_sender / idx_message_receiver: conversation listing.
type Message struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID  string    `gorm:"uniqueIndex;size:36;not null"`
	SenderID   uint64    `gorm:"not null;index:idx_message_sender"`
	ReceiverID uint64    `gorm:"not null;index:idx_message_receiver"`
	PairKey    string    `gorm:"size:48;not null;index:idx_message_pair,priority:1"`
	Content    string    `gorm:"type:text;not null"`
	SentAt     time.Time `gorm:"not null;index:idx_message_pair,priority:2"`
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Profile{}, &Like{}, &Dislike{}, &Match{}, &Message{}}
}
