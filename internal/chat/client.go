// Package chat 实现聊天客户端的连接管理和消息展示逻辑
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"netwise_relay/internal/clients/ws"
	"netwise_relay/internal/models"
)

// 客户端本地提示文本
const (
	TextConnecting       = "Connecting..."
	TextConnected        = "Connected"
	TextDisconnected     = "Disconnected"
	TextErrored          = "Error"
	TextCreateFailed     = "WS failed"
	TextEstablished      = "Connection established. Ask a CN question."
	TextBridgeClosed     = "Bridge disconnected."
	TextConnectionError  = "Connection error. Is the bridge running?"
	TextCreationFailed   = "WebSocket creation failed. Check URL."
	TextNotConnected     = "Not connected to bridge. Try reconnecting."
	TextSendFailedPrefix = "Send failed: "
)

// Client 聊天客户端，同一时间只持有一个连接
type Client struct {
	url      string
	renderer Renderer

	// connectMu 保证检查状态和建立连接是一步完成的
	connectMu sync.Mutex

	mu   sync.Mutex
	conn *ws.Conn
}

// NewClient 创建聊天客户端
func NewClient(url string, renderer Renderer) *Client {
	return &Client{url: url, renderer: renderer}
}

// Connect 新建一个连接，失败时不自动重试
func (c *Client) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	return c.connect(ctx)
}

func (c *Client) connect(ctx context.Context) error {
	c.renderer.SetStatus(StatusConnecting, TextConnecting)

	var conn *ws.Conn
	conn, err := ws.New(c.url, ws.Callbacks{
		OnOpen: func() {
			if !c.isCurrent(conn) {
				return
			}
			c.renderer.SetStatus(StatusConnected, TextConnected)
			c.append(RoleSystem, TextEstablished)
		},
		OnMessage: func(text string) {
			if !c.isCurrent(conn) {
				return
			}
			c.renderer.HideTyping()
			c.append(RoleAssistant, text)
		},
		OnClose: func() {
			if !c.isCurrent(conn) {
				return
			}
			c.renderer.SetStatus(StatusDisconnected, TextDisconnected)
			c.append(RoleSystem, TextBridgeClosed)
		},
		OnError: func(error) {
			if !c.isCurrent(conn) {
				return
			}
			c.renderer.SetStatus(StatusDisconnected, TextErrored)
			c.append(RoleError, TextConnectionError)
		},
	})
	if err != nil {
		c.renderer.SetStatus(StatusDisconnected, TextCreateFailed)
		c.append(RoleError, TextCreationFailed)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	return conn.Connect(ctx)
}

// Submit 发送一条问题，空白输入直接忽略
//
// 用户消息先在本地展示，发送失败也不撤回。返回是否已发出。
func (c *Client) Submit(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c.append(RoleUser, text)

	conn := c.current()
	if conn == nil || conn.State() != ws.StateOpen {
		c.append(RoleSystem, TextNotConnected)
		return false
	}

	// 回复可能在 Send 返回前到达，先显示输入提示
	c.renderer.ShowTyping()
	if err := conn.Send(models.NewPromptMessage(text)); err != nil {
		c.renderer.HideTyping()
		c.append(RoleError, TextSendFailedPrefix+err.Error())
		return false
	}
	return true
}

// Focus 窗口重新获得焦点时调用，只有没有连接或连接已结束时才重连
func (c *Client) Focus(ctx context.Context) bool {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	conn := c.current()
	if conn != nil && !conn.State().Terminal() {
		return false
	}
	return c.connect(ctx) == nil
}

// Clear 清空对话
func (c *Client) Clear() {
	c.renderer.Clear()
}

// State 返回当前连接状态
func (c *Client) State() ws.State {
	conn := c.current()
	if conn == nil {
		return ws.StateIdle
	}
	return conn.State()
}

// Close 关闭当前连接
func (c *Client) Close() error {
	conn := c.current()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// isCurrent 旧连接的事件不再展示
func (c *Client) isCurrent(conn *ws.Conn) bool {
	return conn != nil && c.current() == conn
}

func (c *Client) append(role Role, text string) {
	c.renderer.Append(Message{Role: role, Text: text, Time: time.Now()})
}
