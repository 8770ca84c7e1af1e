package models

import "context"

// RelayService 中继服务接口
type RelayService interface {
	// Answer 转发一个问题并返回要发给客户端的文本，不返回错误
	Answer(ctx context.Context, prompt string) string

	// Greeting 新连接建立后发送的问候语
	Greeting() string
}
