package rest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/msghub"
	"github.com/mailclean/mailclean/pkg/rest/model"
	"github.com/mailclean/mailclean/pkg/server/web"
	"github.com/mailclean/mailclean/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := msghub.New(5, extension.NewHost())
	go hub.Start(ctx)
	setupWebServer(test.NewManager(), hub)

	// Dispatched before connecting, must arrive as history.
	hub.Dispatch(event.ResultMetadata{ID: "1", Origin: event.OriginHTML, Subject: "first",
		OutputSize: 10})
	hub.Sync()

	server := httptest.NewServer(web.Router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/monitor/results"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() *model.JSONMonitorEventV1 {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		ev := &model.JSONMonitorEventV1{}
		require.NoError(t, conn.ReadJSON(ev))
		return ev
	}

	ev := readEvent()
	assert.Equal(t, "result-stored", ev.Variant)
	require.NotNil(t, ev.Header)
	assert.Equal(t, "1", ev.Header.ID)
	assert.Equal(t, "first", ev.Header.Subject)
	assert.Equal(t, int64(10), ev.Header.Size)

	hub.Dispatch(event.ResultMetadata{ID: "2", Subject: "second"})
	ev = readEvent()
	assert.Equal(t, "result-stored", ev.Variant)
	assert.Equal(t, "2", ev.Header.ID)

	hub.Delete("1")
	ev = readEvent()
	assert.Equal(t, "result-deleted", ev.Variant)
	assert.Equal(t, "1", ev.ID)
	assert.Nil(t, ev.Header)
}
