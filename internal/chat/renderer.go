package chat

import "time"

// Status 连接指示状态
type Status int

// 连接指示状态
const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

// Role 消息来源
type Role string

// 消息来源
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// Message 对话中的一条消息
type Message struct {
	Role Role
	Text string
	Time time.Time
}

// Renderer 负责展示对话，可能在任意goroutine中被调用
type Renderer interface {
	SetStatus(status Status, text string)
	Append(msg Message)
	ShowTyping()
	HideTyping()
	Clear()
}
