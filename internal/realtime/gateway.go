package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oggyb/matchchat/internal/app"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/service/auth"
	"github.com/oggyb/matchchat/internal/service/message"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
)

// Socket event names.
const (
	EventSendMessage    = "send_message"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// MessageSender is the part of the message service the gateway needs.
type MessageSender interface {
	CheckMatched(ctx context.Context, senderID, receiverID uint64) error
	Send(ctx context.Context, senderID, receiverID uint64, content string) (message.Message, error)
}

// SendMessageRequest is the send_message payload. receiverId may arrive as
// a string or a number.
type SendMessageRequest struct {
	ReceiverID json.Number `json:"receiverId"`
	Content    string      `json:"content"`
}

// ReceiveMessage is pushed to every channel of the receiver.
type ReceiveMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSent acknowledges a send to the sending channel.
type MessageSent struct {
	ID         string    `json:"id"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// Gateway authenticates connections, registers them in the Hub and routes
// send_message events through the message store to the receiver's channels.
type Gateway struct {
	appCtx   *app.AppContext
	verifier auth.Verifier
	messages MessageSender
	hub      *Hub

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewGateway(appCtx *app.AppContext, verifier auth.Verifier, messages MessageSender) *Gateway {
	return &Gateway{
		appCtx:   appCtx,
		verifier: verifier,
		messages: messages,
		hub:      NewHub(),
		sessions: make(map[string]*Session),
	}
}

func (g *Gateway) Hub() *Hub { return g.hub }

// Connect runs the handshake for ch. On success the session is Connected and
// ch is registered under the user. On failure the session is Closed, nothing
// is registered and the caller must drop the connection.
func (g *Gateway) Connect(ctx context.Context, ch Channel, token string) (*Session, error) {
	sess := NewSession(ch)
	if err := sess.authenticating(); err != nil {
		return nil, err
	}

	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		_, _ = sess.close()
		g.appCtx.Logger.Debug("socket handshake rejected", "channel", ch.ID(), "err", err)
		return sess, svcErr.Unauthenticated("Authentication error")
	}
	if err := sess.connected(id.UserID); err != nil {
		return sess, err
	}

	g.mu.Lock()
	g.sessions[ch.ID()] = sess
	g.mu.Unlock()
	g.hub.Register(id.UserID, ch)
	g.appCtx.Metrics.RealtimeConnections.Inc()

	g.appCtx.Logger.Debug("socket connected", "channel", ch.ID(), "user", id.UserID)
	return sess, nil
}

// Disconnect deregisters the channel and closes its session. Unknown ids are
// ignored.
func (g *Gateway) Disconnect(channelID string) {
	g.mu.Lock()
	sess, ok := g.sessions[channelID]
	delete(g.sessions, channelID)
	g.mu.Unlock()
	if !ok {
		return
	}

	prev, err := sess.close()
	if err != nil {
		return
	}
	if prev == StateConnected && g.hub.Deregister(sess.UserID(), channelID) {
		g.appCtx.Metrics.RealtimeConnections.Dec()
	}
	g.appCtx.Logger.Debug("socket disconnected", "channel", channelID, "user", sess.UserID())
}

// Session returns the live session of a channel.
func (g *Gateway) Session(channelID string) (*Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[channelID]
	return sess, ok
}

// HandleSendMessage processes send_message from a Connected channel.
//
// Behavior:
//   - The match gate is checked again; on failure only the sender gets an
//     error event and nothing is stored.
//   - On success the message is stored first, then receive_message goes to
//     every channel of the receiver and message_sent to the sending channel.
func (g *Gateway) HandleSendMessage(ctx context.Context, channelID string, req SendMessageRequest) {
	sess, ok := g.Session(channelID)
	if !ok || sess.State() != StateConnected {
		return
	}
	ch := sess.Channel()
	senderID := sess.UserID()

	receiverID, err := httpjson.ParseID("receiverId", req.ReceiverID.String())
	if err != nil {
		g.emitError(ch, svcErr.InvalidArgument("receiverId and content are required."))
		return
	}
	if err := g.messages.CheckMatched(ctx, senderID, receiverID); err != nil {
		g.emitError(ch, err)
		return
	}

	msg, err := g.messages.Send(ctx, senderID, receiverID, req.Content)
	if err != nil {
		g.emitError(ch, err)
		return
	}
	g.appCtx.Metrics.MessagesSent.WithLabelValues("socket").Inc()

	g.Deliver(ctx, msg)
	ch.Emit(EventMessageSent, MessageSent{
		ID:         msg.ID,
		ReceiverID: httpjson.FormatID(msg.ReceiverID),
		Content:    msg.Content,
		Timestamp:  msg.SentAt,
	})
	g.appCtx.Metrics.RealtimeEvents.WithLabelValues(EventMessageSent).Inc()
}

// Deliver pushes receive_message to every channel currently registered for
// the receiver. Users with no live channel get nothing; they read History.
func (g *Gateway) Deliver(_ context.Context, msg message.Message) {
	payload := ReceiveMessage{
		ID:        msg.ID,
		SenderID:  httpjson.FormatID(msg.SenderID),
		Content:   msg.Content,
		Timestamp: msg.SentAt,
	}
	for _, ch := range g.hub.Channels(msg.ReceiverID) {
		ch.Emit(EventReceiveMessage, payload)
		g.appCtx.Metrics.RealtimeEvents.WithLabelValues(EventReceiveMessage).Inc()
	}
}

func (g *Gateway) emitError(ch Channel, err error) {
	if svcErr.KindOf(err) == svcErr.KindServerError {
		g.appCtx.Logger.Error("send_message failed", "channel", ch.ID(), "err", err)
	}
	ch.Emit(EventError, svcErr.PublicMessage(err))
	g.appCtx.Metrics.RealtimeEvents.WithLabelValues(EventError).Inc()
}
