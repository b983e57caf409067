package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	socketio "github.com/googollee/go-socket.io"

	"github.com/oggyb/matchchat/internal/service/auth"
)

var errHandshake = errors.New("authentication error")

// NewSocketServer binds the gateway to a socket.io server on namespace "/".
// The caller runs Serve in a goroutine and mounts the server at /socket.io/.
func NewSocketServer(g *Gateway) *socketio.Server {
	server := socketio.NewServer(nil)
	server.OnConnect("/", g.onConnect)
	server.OnEvent("/", EventSendMessage, g.onSendMessage)
	server.OnError("/", g.onError)
	server.OnDisconnect("/", g.onDisconnect)
	return server
}

// onConnect authenticates the handshake. A rejected connection is closed
// before the error is returned to the client.
func (g *Gateway) onConnect(c socketio.Conn) error {
	ctx, cancel := g.appCtx.WithTimeout(context.Background())
	defer cancel()

	u := c.URL()
	if _, err := g.Connect(ctx, c, HandshakeToken(&u, c.RemoteHeader())); err != nil {
		_ = c.Close()
		return errHandshake
	}
	return nil
}

func (g *Gateway) onSendMessage(c socketio.Conn, req SendMessageRequest) {
	ctx, cancel := g.appCtx.WithTimeout(context.Background())
	defer cancel()
	g.HandleSendMessage(ctx, c.ID(), req)
}

func (g *Gateway) onError(c socketio.Conn, err error) {
	if c != nil {
		g.appCtx.Logger.Warn("socket error", "channel", c.ID(), "err", err)
		return
	}
	g.appCtx.Logger.Warn("socket error", "err", err)
}

func (g *Gateway) onDisconnect(c socketio.Conn, reason string) {
	g.appCtx.Logger.Debug("socket closing", "channel", c.ID(), "reason", reason)
	g.Disconnect(c.ID())
}

// HandshakeToken reads the bearer credential of a socket handshake: the
// token query parameter first, then the Authorization header.
func HandshakeToken(u *url.URL, header http.Header) string {
	if u != nil {
		if tok := u.Query().Get("token"); tok != "" {
			return tok
		}
	}
	return auth.BearerToken(header.Get("Authorization"))
}
