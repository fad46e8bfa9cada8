package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
)

// newCycleServer acks every handshake and answers each subscribe with one
// next frame, across any number of reconnects.
func newCycleServer(t *testing.T) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols: []string{"graphql-transport-ws"},
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			switch gjson.GetBytes(data, "type").String() {
			case "connection_init":
				if wsjson.Write(ctx, conn, map[string]string{"type": "connection_ack"}) != nil {
					return
				}
			case "subscribe":
				err := wsjson.Write(ctx, conn, map[string]any{
					"id":      gjson.GetBytes(data, "id").String(),
					"type":    "next",
					"payload": map[string]any{"data": map[string]any{"ok": true}},
				})
				if err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (c *Conn) currentWS() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func TestConn_ShutdownStaleCycle(t *testing.T) {
	t.Parallel()

	t.Run("a previous cycle's socket cannot tear down the current one", func(t *testing.T) {
		t.Parallel()

		url := newCycleServer(t)
		conn := NewConn(common.Options{Endpoint: url}, nil, nil)
		t.Cleanup(func() { _ = conn.Disconnect() })

		require.NoError(t, conn.Connect(context.Background()))
		staleWS := conn.currentWS()
		require.NotNil(t, staleWS)

		require.NoError(t, conn.Disconnect())
		require.NoError(t, conn.Connect(context.Background()))

		sub, err := conn.Subscribe(context.Background(), &common.Request{Query: "subscription { tagValues { name } }"})
		require.NoError(t, err)

		select {
		case msg := <-sub.Messages():
			require.NotNil(t, msg.Payload)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for message")
		}

		// a read loop of cycle 1 reporting its socket failure late
		conn.shutdown(staleWS, ErrConnectionClosed)

		assert.Equal(t, StateConnected, conn.State())
		assert.Equal(t, 1, conn.SubCount())
		select {
		case msg, ok := <-sub.Messages():
			t.Fatalf("subscription disturbed: msg=%+v open=%v", msg, ok)
		default:
		}

		// the connection still accepts new work
		sub2, err := conn.Subscribe(context.Background(), &common.Request{Query: "subscription { activeAlarms { name } }"})
		require.NoError(t, err)
		select {
		case msg := <-sub2.Messages():
			require.NotNil(t, msg.Payload)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for message on the current cycle")
		}
	})

	t.Run("the current cycle's socket still shuts down exactly once", func(t *testing.T) {
		t.Parallel()

		url := newCycleServer(t)
		conn := NewConn(common.Options{Endpoint: url}, nil, nil)
		t.Cleanup(func() { _ = conn.Disconnect() })

		require.NoError(t, conn.Connect(context.Background()))

		sub, err := conn.Subscribe(context.Background(), &common.Request{Query: "subscription { tagValues { name } }"})
		require.NoError(t, err)

		ws := conn.currentWS()
		conn.shutdown(ws, ErrConnectionClosed)
		conn.shutdown(ws, ErrConnectionClosed)

		assert.Equal(t, StateDisconnected, conn.State())
		assert.Equal(t, 0, conn.SubCount())

		var final *common.Message
		for msg := range sub.Messages() {
			final = msg
		}
		require.NotNil(t, final)
		assert.True(t, final.Done)
		assert.ErrorIs(t, final.Err, ErrConnectionClosed)
	})
}
