package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netwise_relay/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedRelay 以 "slow" 开头的问题会等待 release 关闭后才回答
type gatedRelay struct {
	release chan struct{}
}

func (g *gatedRelay) Greeting() string { return "hello" }

func (g *gatedRelay) Answer(ctx context.Context, prompt string) string {
	if strings.HasPrefix(prompt, "slow") {
		<-g.release
	}
	return "re: " + prompt
}

func newTestServer(t *testing.T, relay *gatedRelay) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	RegisterRoutes(r, NewRelayHandler(relay, config.WebSocketConfig{
		ReadLimit:  1 << 20,
		PingPeriod: 50 * time.Millisecond,
		PongWait:   time.Second,
	}))
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestRelayHandler_RepliesInCompletionOrder(t *testing.T) {
	relay := &gatedRelay{release: make(chan struct{})}
	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, relay), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "hello", read(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"prompt","prompt":"slow one"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"prompt","prompt":"fast one"}`)))

	// 慢请求阻塞时快请求先返回
	assert.Equal(t, "re: fast one", read(t, conn))
	close(relay.release)
	assert.Equal(t, "re: slow one", read(t, conn))
}

func TestRelayHandler_BinaryFrame(t *testing.T) {
	relay := &gatedRelay{release: make(chan struct{})}
	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, relay), nil)
	require.NoError(t, err)
	defer conn.Close()

	read(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("raw bytes")))
	assert.Equal(t, "re: raw bytes", read(t, conn))
}

func TestRelayHandler_KeepalivePings(t *testing.T) {
	relay := &gatedRelay{release: make(chan struct{})}
	conn, _, err := websocket.DefaultDialer.Dial(newTestServer(t, relay), nil)
	require.NoError(t, err)
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(data string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	read(t, conn)
	go conn.ReadMessage()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("未收到心跳")
	}
}

func TestRelayHandler_NotWebSocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, NewRelayHandler(&gatedRelay{}, config.WebSocketConfig{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 400, w.Code)
}
