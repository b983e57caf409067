package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	socketio "github.com/googollee/go-socket.io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn stands in for a socket.io connection. Methods the gateway never
// calls fall through to the nil embedded interface.
type fakeConn struct {
	socketio.Conn
	ch     *fakeChannel
	url    url.URL
	header http.Header
	closed bool
}

func newFakeConn(id, query string, header http.Header) *fakeConn {
	if header == nil {
		header = http.Header{}
	}
	return &fakeConn{
		ch:     newFakeChannel(id),
		url:    url.URL{Path: "/socket.io/", RawQuery: query},
		header: header,
	}
}

func (c *fakeConn) ID() string                          { return c.ch.ID() }
func (c *fakeConn) Emit(event string, v ...interface{}) { c.ch.Emit(event, v...) }
func (c *fakeConn) URL() url.URL                        { return c.url }
func (c *fakeConn) RemoteHeader() http.Header           { return c.header }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (f *fixture) token(t *testing.T, userID uint64) string {
	t.Helper()
	tok, err := f.auth.IssueToken(context.Background(), userID)
	require.NoError(t, err)
	return tok
}

func decodeSendMessage(t *testing.T, payload string) SendMessageRequest {
	t.Helper()
	var req SendMessageRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	return req
}

func TestSocketConnectRejectsBadToken(t *testing.T) {
	f := setupGateway(t)

	c := newFakeConn("bad", "token=garbage", nil)
	err := f.gw.onConnect(c)
	assert.ErrorIs(t, err, errHandshake)
	assert.True(t, c.closed)
	assert.Zero(t, f.gw.Hub().Len())

	missing := newFakeConn("missing", "", nil)
	assert.ErrorIs(t, f.gw.onConnect(missing), errHandshake)
	assert.True(t, missing.closed)
}

func TestSocketSendMessageReachesReceiver(t *testing.T) {
	f := setupGateway(t)

	alice := newFakeConn("alice-1", "token="+f.token(t, 1), nil)
	require.NoError(t, f.gw.onConnect(alice))

	h := http.Header{}
	h.Set("Authorization", "Bearer "+f.token(t, 2))
	bob := newFakeConn("bob-1", "", h)
	require.NoError(t, f.gw.onConnect(bob))
	assert.False(t, alice.closed)
	assert.False(t, bob.closed)

	for i, payload := range []string{
		`{"receiverId":"2","content":"as string"}`,
		`{"receiverId":2,"content":"as number"}`,
	} {
		f.gw.onSendMessage(alice, decodeSendMessage(t, payload))

		got := bob.ch.received()
		require.Len(t, got, i+1)
		assert.Equal(t, EventReceiveMessage, got[i].event)
		assert.Equal(t, "1", got[i].args[0].(ReceiveMessage).SenderID)

		acks := alice.ch.received()
		require.Len(t, acks, i+1)
		assert.Equal(t, EventMessageSent, acks[i].event)
	}
	assert.Equal(t, "as number", bob.ch.received()[1].args[0].(ReceiveMessage).Content)
}

func TestSocketDisconnectDeregisters(t *testing.T) {
	f := setupGateway(t)

	bob := newFakeConn("bob-1", "token="+f.token(t, 2), nil)
	require.NoError(t, f.gw.onConnect(bob))
	require.Len(t, f.gw.Hub().Channels(2), 1)

	f.gw.onDisconnect(bob, "client namespace disconnect")
	assert.Empty(t, f.gw.Hub().Channels(2))
	_, ok := f.gw.Session("bob-1")
	assert.False(t, ok)

	// errors without a connection are logged, not fatal
	f.gw.onError(nil, assert.AnError)
	f.gw.onError(bob, assert.AnError)
}
