package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/msghub"
	"github.com/mailclean/mailclean/pkg/rest/model"
	"github.com/mailclean/mailclean/pkg/server/web"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Monitor event variants.
	variantStored  = "result-stored"
	variantDeleted = "result-deleted"
)

// options for gorilla connection upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// resultListener handles results from the msghub.
type resultListener struct {
	hub *msghub.Hub                    // Global result hub.
	c   chan *model.JSONMonitorEventV1 // Queue of incoming events.
}

// newResultListener creates a listener and registers it.
func newResultListener(hub *msghub.Hub) *resultListener {
	rl := &resultListener{
		hub: hub,
		c:   make(chan *model.JSONMonitorEventV1, 100),
	}
	hub.AddListener(rl)
	return rl
}

// Receive handles a stored result.
func (rl *resultListener) Receive(r event.ResultMetadata) error {
	rl.c <- &model.JSONMonitorEventV1{
		Variant: variantStored,
		Header:  metadataToHeader(&r),
	}
	return nil
}

// Delete handles a deleted result.
func (rl *resultListener) Delete(id string) error {
	rl.c <- &model.JSONMonitorEventV1{
		Variant: variantDeleted,
		ID:      id,
	}
	return nil
}

// WSReader makes sure the websocket client is still connected, discards any messages from client
func (rl *resultListener) WSReader(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()
	defer rl.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn().Err(err).Msg("Failed to setup read deadline")
	}
	conn.SetPongHandler(func(string) error {
		slog.Debug().Msg("Got pong")
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Warn().Err(err).Msg("Failed to set read deadline in pong")
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				// Unexpected close code
				slog.Warn().Err(err).Msg("Socket error")
			} else {
				slog.Debug().Msg("Closing socket")
			}
			break
		}
	}
}

// WSWriter sends queued events to the websocket client, pinging it while idle.
func (rl *resultListener) WSWriter(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		rl.Close()
	}()

	// Handle events from hub until resultListener is closed.
	for {
		select {
		case ev, ok := <-rl.c:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for event")
			}
			if !ok {
				// resultListener closed, exit
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if conn.WriteJSON(ev) != nil {
				// Write failed
				return
			}
		case <-ticker.C:
			// Send ping
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for ping")
			}
			if conn.WriteMessage(websocket.PingMessage, []byte{}) != nil {
				// Write error
				return
			}
			slog.Debug().Msg("Sent ping")
		}
	}
}

// Close removes the listener registration
func (rl *resultListener) Close() {
	select {
	case <-rl.c:
		// Already closed
	default:
		rl.hub.RemoveListener(rl)
		close(rl.c)
	}
}

// MonitorResultsV1 is a web handler which upgrades the connection to a websocket and notifies the
// client of stored and deleted results, starting with the hub history.
func MonitorResultsV1(
	w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	// Upgrade to Websocket.
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	web.ExpWebSocketConnectsCurrent.Add(1)
	defer func() {
		_ = conn.Close()
		web.ExpWebSocketConnectsCurrent.Add(-1)
	}()
	log.Debug().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Msg("Upgraded to WebSocket")
	// Create, register listener; then interact with conn.
	rl := newResultListener(ctx.MsgHub)
	go rl.WSWriter(conn)
	rl.WSReader(conn)
	return nil
}
