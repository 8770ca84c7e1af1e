package config

import "errors"

// 配置相关错误
var (
	ErrInvalidPort      = errors.New("服务器端口必须在1-65535之间")
	ErrEmptyAPIKey      = errors.New("Gemini API密钥不能为空")
	ErrEmptyModel       = errors.New("Gemini模型名称不能为空")
	ErrInvalidBaseURL   = errors.New("Gemini接口地址必须以http://或https://开头")
	ErrInvalidKeepalive = errors.New("心跳间隔必须小于Pong等待时间")
)
