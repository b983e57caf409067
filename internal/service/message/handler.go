package message

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/service/auth"
	"github.com/oggyb/matchchat/internal/utils/httpjson"
	"github.com/oggyb/matchchat/internal/utils/validate"
)

// Notifier pushes a stored message to the receiver's live connections.
// The realtime gateway implements it.
type Notifier interface {
	Deliver(ctx context.Context, msg Message)
}

// sendRequest accepts receiverId as a string or a number, like the socket
// payload.
type sendRequest struct {
	ReceiverID json.Number `json:"receiverId" validate:"required"`
	Content    string      `json:"content" validate:"required"`
}

// View is the wire form of a message.
type View struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type conversationView struct {
	UserID        string    `json:"userId"`
	Name          string    `json:"name"`
	LastMessage   string    `json:"lastMessage"`
	LastTimestamp time.Time `json:"lastTimestamp"`
	MessageCount  int64     `json:"messageCount"`
}

type sendResponse struct {
	Success bool `json:"success"`
	Message View `json:"message"`
}

type historyResponse struct {
	Messages   []View  `json:"messages"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type listResponse struct {
	Success       bool               `json:"success"`
	Conversations []conversationView `json:"conversations"`
}

// ToView renders msg for HTTP and socket clients.
func ToView(msg Message) View {
	return View{
		ID:         msg.ID,
		SenderID:   httpjson.FormatID(msg.SenderID),
		ReceiverID: httpjson.FormatID(msg.ReceiverID),
		Content:    msg.Content,
		Timestamp:  msg.SentAt,
	}
}

// Handler exposes the message service over HTTP. Every route expects
// auth.RequireAuth in front of it.
type Handler struct {
	svc      *Service
	notifier Notifier
}

// NewHandler creates the HTTP handler. notifier may be nil.
func NewHandler(svc *Service, notifier Notifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpjson.Error(w, r, svcErr.InvalidArgument("receiverId and content are required."))
		return
	}
	receiverID, err := httpjson.ParseID("receiverId", req.ReceiverID.String())
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}

	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	msg, err := h.svc.Send(ctx, senderID, receiverID, req.Content)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	h.svc.appCtx.Metrics.MessagesSent.WithLabelValues("http").Inc()

	if h.notifier != nil {
		h.notifier.Deliver(ctx, msg)
	}
	httpjson.Write(w, http.StatusOK, sendResponse{Success: true, Message: ToView(msg)})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	otherID, err := httpjson.ParseID("userId", chi.URLParam(r, "userId"))
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	limit, err := httpjson.QueryInt(r, "limit")
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}
	cursor := httpjson.QueryString(r, "cursor")

	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	var (
		msgs []Message
		next *string
	)
	if limit > 0 || cursor != nil {
		msgs, next, err = h.svc.HistoryPage(ctx, viewerID, otherID, cursor, limit)
	} else {
		msgs, err = h.svc.History(ctx, viewerID, otherID)
	}
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}

	resp := historyResponse{Messages: make([]View, 0, len(msgs)), NextCursor: next}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, ToView(m))
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.svc.appCtx.WithTimeout(r.Context())
	defer cancel()

	convs, err := h.svc.ListConversations(ctx, viewerID)
	if err != nil {
		httpjson.Error(w, r, err)
		return
	}

	resp := listResponse{Success: true, Conversations: make([]conversationView, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, conversationView{
			UserID:        httpjson.FormatID(c.UserID),
			Name:          c.Name,
			LastMessage:   c.LastMessage,
			LastTimestamp: c.LastTimestamp,
			MessageCount:  c.MessageCount,
		})
	}
	httpjson.Write(w, http.StatusOK, resp)
}

func currentUser(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		httpjson.Error(w, r, svcErr.Unauthenticated("Please authenticate."))
	}
	return id, ok
}
