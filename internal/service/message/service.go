package message

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/repository"
	"github.com/oggyb/matchchat/internal/utils/pagination"
)

// MaxContentLength caps a message body, in characters.
const MaxContentLength = 5000

var (
	errNotMatchedSend    = svcErr.Unauthorized("You can only message matched users.")
	errNotMatchedHistory = svcErr.Unauthorized("You can only view messages with matched users.")
)

// Matcher is the match gate. The match service implements it.
type Matcher interface {
	IsMatched(ctx context.Context, a, b uint64) (bool, error)
}

// Message is a stored direct message.
type Message struct {
	ID         string
	SenderID   uint64
	ReceiverID uint64
	Content    string
	SentAt     time.Time
}

// Conversation summarizes the messages between the viewer and one user.
type Conversation struct {
	UserID        uint64
	Name          string
	LastMessage   string
	LastTimestamp time.Time
	MessageCount  int64
}

// Service is the message store: an append-only log of direct messages
// between matched users.
type Service struct {
	appCtx   *app.AppContext
	messages *repository.MessageRepository
	matcher  Matcher
}

// NewService creates a message service. matcher gates every send and
// history read.
func NewService(appCtx *app.AppContext, matcher Matcher) *Service {
	return &Service{
		appCtx:   appCtx,
		messages: repository.NewMessageRepository(appCtx.DB),
		matcher:  matcher,
	}
}

// CheckMatched returns Unauthorized unless sender and receiver are matched.
func (s *Service) CheckMatched(ctx context.Context, senderID, receiverID uint64) error {
	ok, err := s.matcher.IsMatched(ctx, senderID, receiverID)
	if err != nil {
		return svcErr.Map(err)
	}
	if !ok {
		return errNotMatchedSend
	}
	return nil
}

// Send stores a message from sender to receiver.
//
// Behavior:
//   - receiverID and non-empty content are required (InvalidArgument).
//   - The pair must be matched (Unauthorized); nothing is written otherwise.
//   - The timestamp is assigned here and never goes below the pair's
//     previous message.
func (s *Service) Send(ctx context.Context, senderID, receiverID uint64, content string) (Message, error) {
	s.appCtx.Logger.Debug("Send called", "sender", senderID, "receiver", receiverID)

	if receiverID == 0 || content == "" {
		return Message{}, svcErr.InvalidArgument("receiverId and content are required.")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return Message{}, svcErr.InvalidArgument("content is too long.")
	}
	if err := s.CheckMatched(ctx, senderID, receiverID); err != nil {
		return Message{}, err
	}

	msg := db.Message{
		MessageID:  uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		SentAt:     time.Now(),
	}
	if err := s.messages.Append(ctx, &msg); err != nil {
		s.appCtx.Logger.Error("Append failed", "sender", senderID, "receiver", receiverID, "err", err)
		return Message{}, svcErr.Map(err)
	}
	return toMessage(msg), nil
}

// History returns every message between viewer and other, oldest first. Both
// parties see the same sequence.
func (s *Service) History(ctx context.Context, viewerID, otherID uint64) ([]Message, error) {
	s.appCtx.Logger.Debug("History called", "viewer", viewerID, "other", otherID)

	if err := s.checkHistory(ctx, viewerID, otherID); err != nil {
		return nil, err
	}
	rows, err := s.messages.History(ctx, viewerID, otherID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return toMessages(rows), nil
}

// HistoryPage is History split into pages of limit messages.
func (s *Service) HistoryPage(ctx context.Context, viewerID, otherID uint64, token *string, limit int) ([]Message, *string, error) {
	s.appCtx.Logger.Debug("HistoryPage called", "viewer", viewerID, "other", otherID, "token", token)

	if token != nil {
		if _, err := pagination.Decode(*token); err != nil {
			return nil, nil, svcErr.InvalidArgument("invalid pagination token")
		}
	}
	if err := s.checkHistory(ctx, viewerID, otherID); err != nil {
		return nil, nil, err
	}
	rows, next, err := s.messages.HistoryPage(ctx, viewerID, otherID, token, pagination.ClampLimit(limit))
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}
	return toMessages(rows), next, nil
}

// ListConversations groups the viewer's messages by counterpart, most
// recent conversation first.
func (s *Service) ListConversations(ctx context.Context, viewerID uint64) ([]Conversation, error) {
	s.appCtx.Logger.Debug("ListConversations called", "viewer", viewerID)

	rows, err := s.messages.Conversations(ctx, viewerID)
	if err != nil {
		s.appCtx.Logger.Error("Conversations failed", "viewer", viewerID, "err", err)
		return nil, svcErr.Map(err)
	}

	out := make([]Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Conversation{
			UserID:        r.CounterpartID,
			Name:          r.CounterpartName,
			LastMessage:   r.Last.Content,
			LastTimestamp: r.Last.SentAt,
			MessageCount:  r.MessageCount,
		})
	}
	return out, nil
}

func (s *Service) checkHistory(ctx context.Context, viewerID, otherID uint64) error {
	ok, err := s.matcher.IsMatched(ctx, viewerID, otherID)
	if err != nil {
		return svcErr.Map(err)
	}
	if !ok {
		return errNotMatchedHistory
	}
	return nil
}

func toMessage(m db.Message) Message {
	return Message{
		ID:         m.MessageID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		SentAt:     m.SentAt,
	}
}

func toMessages(rows []db.Message) []Message {
	out := make([]Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, toMessage(m))
	}
	return out
}
