package services

import (
	"context"
	"errors"
	"time"

	"netwise_relay/internal/clients/gemini"
	"netwise_relay/internal/config"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Completer 补全接口
type Completer interface {
	GenerateContent(ctx context.Context, prompt string) (*gemini.GenerateContentResponse, error)
}

// RelayService 把问题转发给补全接口并把结果映射为客户端文本
type RelayService struct {
	completer Completer
	texts     config.RelayConfig
}

// NewRelayService 创建新的中继服务
func NewRelayService(cfg *config.Config) *RelayService {
	client := gemini.NewClient(gemini.Config{
		BaseURL:           cfg.Gemini.BaseURL,
		Model:             cfg.Gemini.Model,
		APIKey:            cfg.Gemini.APIKey,
		SystemInstruction: cfg.Relay.SystemInstruction,
	}, nil)
	return NewRelayServiceWithCompleter(client, cfg.Relay)
}

// NewRelayServiceWithCompleter 使用指定的补全接口创建中继服务
func NewRelayServiceWithCompleter(completer Completer, texts config.RelayConfig) *RelayService {
	return &RelayService{
		completer: completer,
		texts:     texts,
	}
}

// Greeting 返回问候语
func (s *RelayService) Greeting() string {
	return s.texts.Greeting
}

// Answer 处理一个问题
//
// 上游失败返回内部错误文本，没有回答返回拒绝文本。
func (s *RelayService) Answer(ctx context.Context, prompt string) string {
	entry := log.WithField("request_id", uuid.NewString()[:8])
	entry.Debugf("UI → %q", prompt)

	start := time.Now()
	resp, err := s.completer.GenerateContent(ctx, prompt)
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			entry.WithField("status", apiErr.StatusCode).Errorf("Gemini返回错误: %v, body=%s", err, apiErr.Body)
		} else {
			entry.Errorf("Gemini请求失败: %v", err)
		}
		return s.texts.InternalError
	}

	reply, ok := resp.FirstText()
	if !ok {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			entry.Warnf("问题被拦截: %s", resp.PromptFeedback.BlockReason)
		} else {
			entry.Warn("Gemini响应中没有回答文本")
		}
		return s.texts.Refusal
	}

	entry.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debugf("发送 → %d 字节", len(reply))
	return reply
}
