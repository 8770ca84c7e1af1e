package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"netwise_relay/internal/clients/gemini"
	"netwise_relay/internal/config"
	"netwise_relay/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream 模拟 generateContent 接口
type fakeUpstream struct {
	mu      sync.Mutex
	prompts []string
	status  int
	body    string
}

func (f *fakeUpstream) set(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.body = body
}

func (f *fakeUpstream) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req gemini.GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) == 1 && len(req.Contents[0].Parts) == 1 {
		f.mu.Lock()
		f.prompts = append(f.prompts, req.Contents[0].Parts[0].Text)
		f.mu.Unlock()
	}

	f.mu.Lock()
	status, body := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func newRelay(t *testing.T) (*fakeUpstream, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := &fakeUpstream{status: http.StatusOK, body: `{"candidates":[{"content":{"parts":[{"text":"X"}]}}]}`}
	upstreamServer := httptest.NewServer(upstream)
	t.Cleanup(upstreamServer.Close)

	cfg := &config.Config{
		Gemini: config.GeminiConfig{BaseURL: upstreamServer.URL + "/v1beta", Model: "test-model", APIKey: "k"},
		Relay: config.RelayConfig{
			SystemInstruction: config.DefaultSystemInstruction,
			Greeting:          config.DefaultGreeting,
			Refusal:           config.DefaultRefusal,
			InternalError:     config.DefaultInternalError,
		},
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			ReadLimit:       config.DefaultReadLimit,
			PingPeriod:      time.Second,
			PongWait:        5 * time.Second,
		},
	}

	relayServer := httptest.NewServer(NewEngine(cfg))
	t.Cleanup(relayServer.Close)

	return upstream, "ws" + strings.TrimPrefix(relayServer.URL, "http") + "/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, messageType)
	return string(data)
}

func TestRelay_GreetingAndAnswer(t *testing.T) {
	upstream, url := newRelay(t)
	conn := dial(t, url)

	assert.Equal(t, config.DefaultGreeting, readText(t, conn))

	require.NoError(t, conn.WriteJSON(models.NewPromptMessage("What is BGP?")))
	assert.Equal(t, "X", readText(t, conn))
	assert.Equal(t, []string{"What is BGP?"}, upstream.received())
}

func TestRelay_RawTextFallback(t *testing.T) {
	upstream, url := newRelay(t)
	conn := dial(t, url)
	readText(t, conn)

	raw := `{"prompt": broken json`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
	assert.Equal(t, "X", readText(t, conn))
	assert.Equal(t, []string{raw}, upstream.received())
}

func TestRelay_Refusal(t *testing.T) {
	upstream, url := newRelay(t)
	upstream.set(http.StatusOK, `{"promptFeedback":{"blockReason":"OTHER"}}`)
	conn := dial(t, url)
	readText(t, conn)

	require.NoError(t, conn.WriteJSON(models.NewPromptMessage("best pizza?")))
	assert.Equal(t, config.DefaultRefusal, readText(t, conn))
}

func TestRelay_UpstreamErrorKeepsConnection(t *testing.T) {
	upstream, url := newRelay(t)
	upstream.set(http.StatusInternalServerError, `{"error":{"message":"boom"}}`)
	conn := dial(t, url)
	readText(t, conn)

	require.NoError(t, conn.WriteJSON(models.NewPromptMessage("first")))
	assert.Equal(t, config.DefaultInternalError, readText(t, conn))

	upstream.set(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"second answer"}]}}]}`)
	require.NoError(t, conn.WriteJSON(models.NewPromptMessage("second")))
	assert.Equal(t, "second answer", readText(t, conn))
	assert.Equal(t, []string{"first", "second"}, upstream.received())
}

func TestRelay_OneRequestPerMessage(t *testing.T) {
	upstream, url := newRelay(t)
	conn := dial(t, url)
	readText(t, conn)

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, conn.WriteJSON(models.NewPromptMessage(p)))
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, "X", readText(t, conn))
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, upstream.received())
}

func TestRelay_LargePrompt(t *testing.T) {
	upstream, url := newRelay(t)
	conn := dial(t, url)
	readText(t, conn)

	// 超过1MB的问题也要转发并得到回复
	prompt := strings.Repeat("a", 2<<20)
	require.NoError(t, conn.WriteJSON(models.NewPromptMessage(prompt)))
	assert.Equal(t, "X", readText(t, conn))

	received := upstream.received()
	require.Len(t, received, 1)
	assert.Equal(t, len(prompt), len(received[0]))
}

func TestRelay_ReconnectGetsFreshGreeting(t *testing.T) {
	_, url := newRelay(t)

	first := dial(t, url)
	assert.Equal(t, config.DefaultGreeting, readText(t, first))
	first.Close()

	second := dial(t, url)
	assert.Equal(t, config.DefaultGreeting, readText(t, second))
	require.NoError(t, second.WriteJSON(models.NewPromptMessage("after reconnect")))
	assert.Equal(t, "X", readText(t, second))
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	engine := NewEngineWithRelay(cfg, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
