package models

import "encoding/json"

// MessageTypePrompt 客户端提问消息类型
const MessageTypePrompt = "prompt"

// PromptMessage 客户端发往中继的提问消息
type PromptMessage struct {
	Type   string `json:"type"`   // 固定为 prompt
	Prompt string `json:"prompt"` // 用户问题
}

// NewPromptMessage 创建提问消息
func NewPromptMessage(prompt string) PromptMessage {
	return PromptMessage{Type: MessageTypePrompt, Prompt: prompt}
}

// ParsePrompt 从原始消息中取出问题文本
//
// 消息是带 prompt 字符串字段的JSON对象时取该字段，否则整条原始消息即为问题。
// 不做空白校验。
func ParsePrompt(raw []byte) string {
	var envelope struct {
		Prompt *string `json:"prompt"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Prompt == nil {
		return string(raw)
	}
	return *envelope.Prompt
}
