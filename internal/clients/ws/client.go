// Package ws 提供聊天客户端使用的单连接WebSocket实现
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// State 连接状态
type State int

// 连接状态，closed 和 errored 为终态
const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal 是否为终态
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

const closeGracePeriod = time.Second

// ErrNotOpen 连接未处于open状态
var ErrNotOpen = errors.New("WebSocket连接未建立")

// Callbacks 连接生命周期回调，在内部goroutine中调用
//
// OnClose 和 OnError 在一个连接上只会触发其中一个。
type Callbacks struct {
	OnOpen    func()
	OnMessage func(text string)
	OnClose   func()
	OnError   func(err error)
}

// Conn 一次性的WebSocket连接，关闭后不能重用
type Conn struct {
	url    string
	cb     Callbacks
	dialer websocket.Dialer

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	closing bool

	writeMu sync.Mutex
}

// New 校验地址并创建连接对象，不发起连接
func New(rawURL string, cb Callbacks) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("解析URL失败: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("不支持的URL协议: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("URL缺少主机: %q", rawURL)
	}

	return &Conn{
		url: u.String(),
		cb:  cb,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

// Connect 异步发起连接，只能调用一次
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return fmt.Errorf("连接状态为%s，不能再次连接", c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// State 返回当前状态
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// URL 返回服务器地址
func (c *Conn) URL() string {
	return c.url
}

// run 建立连接并进入接收循环
func (c *Conn) run(ctx context.Context) {
	log.Debugf("正在连接WebSocket服务器: %s", c.url)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.finish(fmt.Errorf("连接WebSocket失败: %w", err))
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		conn.Close()
		c.finish(nil)
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.finish(err)
			return
		}
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(string(data))
		}
	}
}

// finish 进入终态并触发 OnClose 或 OnError
func (c *Conn) finish(err error) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	normal := err == nil || c.closing ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	if normal {
		c.state = StateClosed
	} else {
		c.state = StateErrored
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	if normal {
		if c.cb.OnClose != nil {
			c.cb.OnClose()
		}
		return
	}
	log.Debugf("WebSocket连接异常: %v", err)
	if c.cb.OnError != nil {
		c.cb.OnError(err)
	}
}

// Send 以JSON发送一条消息
func (c *Conn) Send(message any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != StateOpen || conn == nil {
		return ErrNotOpen
	}

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("消息序列化失败: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
		return fmt.Errorf("发送消息失败: %w", err)
	}
	return nil
}

// Close 关闭连接，OnClose 随后在接收循环中触发
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()

	// 对端不回应关闭帧时强制断开
	time.AfterFunc(closeGracePeriod, func() { conn.Close() })
	return nil
}
