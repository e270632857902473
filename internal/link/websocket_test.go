package link

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/protocol"
)

func dialLink(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketLink_Lifecycle(t *testing.T) {
	l := NewWebSocketLink()
	defer l.Close()
	_, ch := l.Subscribe()

	srv := httptest.NewServer(l)
	defer srv.Close()

	conn := dialLink(t, srv)
	assert.Equal(t, Attach, recv(t, ch).Kind)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("LEFT_ON")))
	cmd := recv(t, ch)
	assert.Equal(t, Command, cmd.Kind)
	assert.Equal(t, []byte("LEFT_ON"), cmd.Payload)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x05}))
	assert.Equal(t, []byte{0x05}, recv(t, ch).Payload)

	pkt := protocol.EncodeEvent(2, 0.75)
	require.NoError(t, l.Send(protocol.Events, pkt[:]))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, append([]byte{byte(protocol.Events)}, pkt[:]...), msg)

	conn.Close()
	assert.Equal(t, Detach, recv(t, ch).Kind)
	assert.False(t, l.Attached())
}

func TestWebSocketLink_SingleRemote(t *testing.T) {
	l := NewWebSocketLink()
	defer l.Close()
	_, ch := l.Subscribe()

	srv := httptest.NewServer(l)
	defer srv.Close()

	first := dialLink(t, srv)
	defer first.Close()
	require.Equal(t, Attach, recv(t, ch).Kind)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocketLink_CloseDisconnectsRemote(t *testing.T) {
	l := NewWebSocketLink()
	_, ch := l.Subscribe()

	srv := httptest.NewServer(l)
	defer srv.Close()

	conn := dialLink(t, srv)
	defer conn.Close()
	require.Equal(t, Attach, recv(t, ch).Kind)

	require.NoError(t, l.Close())
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
