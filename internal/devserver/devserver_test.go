package devserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tpack-go/tpack/internal/build"
)

func TestNotifierBroadcastsReloadMessageToConnectedClient(t *testing.T) {
	n := New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, n.HandleConnection(w, r))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give HandleConnection's registration a moment to land before
	// broadcasting, since Notify only reaches connections already
	// registered in n.conns.
	time.Sleep(20 * time.Millisecond)

	n.Notify([]build.GeneratedModule{{Path: "a.js", Hash: 42, MD5: "deadbeef"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg ReloadMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	require.Equal(t, "reload", msg.Type)
	require.Equal(t, "a.js", msg.Path)
	require.Equal(t, "deadbeef", msg.MD5)
}
