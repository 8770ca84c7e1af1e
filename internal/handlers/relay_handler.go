package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"netwise_relay/internal/config"
	"netwise_relay/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// RelayHandler 中继WebSocket处理器
type RelayHandler struct {
	relay    models.RelayService
	wsConfig config.WebSocketConfig
	upgrader websocket.Upgrader
}

// relaySession 单个连接，只保存写锁
type relaySession struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *log.Entry
}

// NewRelayHandler 创建中继处理器
func NewRelayHandler(relay models.RelayService, wsConfig config.WebSocketConfig) *RelayHandler {
	return &RelayHandler{
		relay:    relay,
		wsConfig: wsConfig,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   wsConfig.ReadBufferSize,
			WriteBufferSize:  wsConfig.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket 处理WebSocket连接
func (h *RelayHandler) HandleWebSocket(c *gin.Context) {
	// 升级HTTP连接为WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("升级WebSocket连接失败: %v", err)
		return
	}

	id := uuid.NewString()[:8]
	session := &relaySession{
		id:   id,
		conn: conn,
		log:  log.WithFields(log.Fields{"conn_id": id, "remote": conn.RemoteAddr().String()}),
	}
	session.log.Info("客户端已连接")

	if err := session.write(h.relay.Greeting()); err != nil {
		session.log.Warnf("发送问候语失败: %v", err)
		conn.Close()
		return
	}

	h.handleSession(session)
}

// handleSession 读取消息，每条消息单独处理
func (h *RelayHandler) handleSession(session *relaySession) {
	done := make(chan struct{})
	defer func() {
		close(done)
		session.conn.Close()
		session.log.Info("客户端已断开")
	}()

	conn := session.conn
	conn.SetReadLimit(h.wsConfig.ReadLimit)
	h.extendReadDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.extendReadDeadline(conn)
		return nil
	})

	if h.wsConfig.PingPeriod > 0 {
		go h.keepalive(session, done)
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				session.log.Warnf("读取WebSocket消息失败: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		h.extendReadDeadline(conn)
		prompt := models.ParsePrompt(data)

		// 回复顺序不保证与提问顺序一致
		go h.answer(session, prompt)
	}
}

// answer 转发一个问题并回写结果
func (h *RelayHandler) answer(session *relaySession, prompt string) {
	defer func() {
		if r := recover(); r != nil {
			session.log.Errorf("处理问题panic: %v", r)
		}
	}()

	reply := h.relay.Answer(context.Background(), prompt)
	if err := session.write(reply); err != nil {
		session.log.Warnf("发送回复失败: %v", err)
	}
}

// extendReadDeadline 未配置PongWait时不设读超时
func (h *RelayHandler) extendReadDeadline(conn *websocket.Conn) {
	if h.wsConfig.PongWait > 0 {
		conn.SetReadDeadline(time.Now().Add(h.wsConfig.PongWait))
	}
}

// keepalive 定期发送Ping
func (h *RelayHandler) keepalive(session *relaySession, done <-chan struct{}) {
	ticker := time.NewTicker(h.wsConfig.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := session.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				session.log.Debugf("发送心跳失败: %v", err)
				return
			}
		}
	}
}

// write 发送一条文本消息
func (s *relaySession) write(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(text))
}
