package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionDeliversMessageFrames(t *testing.T) {
	h := NewHub()
	joined := make(chan *Connection, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection("ana", ws, 4)
		conn.Start()
		h.Join("conv", conn)
		joined <- conn
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	var conn *Connection
	select {
	case conn = <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("server never joined")
	}

	require.Equal(t, 1, h.Publish("conv", Envelope{SenderDisplayName: "bob", Content: "hi", DisplayTime: "6:05 PM", MessageID: "m1"}, ""))

	var f Frame
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, client.ReadJSON(&f))
	assert.Equal(t, FrameMessage, f.Type)
	assert.Equal(t, "conv", f.ConversationID)
	assert.Equal(t, "bob", f.SenderDisplayName)
	assert.Equal(t, "m1", f.Envelope().MessageID)

	conn.Close(websocket.CloseNormalClosure, "bye")
	assert.ErrorIs(t, conn.Deliver(Envelope{Content: "late"}), ErrSubscriberClosed)
}
