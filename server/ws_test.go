package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// readUntil 持续读取直到出现目标类型的消息或超时
func readUntil(t *testing.T, conn *websocket.Conn, typ string, timeout time.Duration) map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "等待 %s 超时或连接中断", typ)
		var m map[string]any
		require.NoError(t, json.Unmarshal(payload, &m))
		if m["type"] == typ {
			return m
		}
	}
}

func TestWebSocketJoinRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", HandleWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "join", "room_id": "ws-e2e", "nickname": "集成", "spectator": false,
	}))

	self := readUntil(t, conn, MsgJoinedSelf, 2*time.Second)
	require.Equal(t, "ws-e2e", self["room_id"])
	require.NotEmpty(t, self["id"])

	// 对局随首个战斗位加入开始，随后每 Tick 都有全量状态
	started := readUntil(t, conn, MsgWaveStarted, 2*time.Second)
	require.Equal(t, float64(1), started["wave"])
	tick := readUntil(t, conn, MsgTickState, 2*time.Second)
	require.Equal(t, "playing", tick["phase"])

	// 正常关闭后房间被销毁（唯一会话离开）
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool {
		return GetRoomManager().Get("ws-e2e") == nil
	}, 2*time.Second, 20*time.Millisecond, "最后一个会话断开应销毁房间")
}

func TestWebSocketChatEcho(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", HandleWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "join", "room_id": "ws-chat", "nickname": "回声",
	}))
	readUntil(t, conn, MsgJoinedSelf, 2*time.Second)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat", "text": "ping"}))
	msg := readUntil(t, conn, MsgChat, 2*time.Second)
	require.Equal(t, "ping", msg["text"])
	require.Equal(t, "回声", msg["nickname"])
}
