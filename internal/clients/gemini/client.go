// Package gemini 提供 generateContent 接口的HTTP客户端
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// Config Gemini客户端配置
type Config struct {
	BaseURL           string // 接口基础地址，如 https://generativelanguage.googleapis.com/v1beta
	Model             string // 使用的模型名称
	APIKey            string // API密钥
	SystemInstruction string // 每次请求携带的系统指令
}

// Client Gemini客户端
type Client struct {
	config Config
	client *http.Client
}

// APIError 上游返回非2xx状态码
type APIError struct {
	StatusCode int
	Status     string
	Body       string // 原始响应体，仅用于日志
	Message    string // 响应体中的 error.message
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("服务器返回错误: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("服务器返回错误: %s", e.Status)
}

// NewClient 创建新的Gemini客户端
//
// httpClient 为 nil 时使用不设超时的默认客户端。
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config: config,
		client: httpClient,
	}
}

// Endpoint 返回带密钥的请求地址
func (c *Client) Endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.config.BaseURL, url.PathEscape(c.config.Model), url.QueryEscape(c.config.APIKey))
}

// BuildRequest 构建单轮请求体
func (c *Client) BuildRequest(prompt string) GenerateContentRequest {
	return GenerateContentRequest{
		SystemInstruction: &Content{
			Parts: []Part{{Text: c.config.SystemInstruction}},
		},
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: prompt}}},
		},
	}
}

// GenerateContent 发送一次补全请求
func (c *Client) GenerateContent(ctx context.Context, prompt string) (*GenerateContentResponse, error) {
	jsonData, err := json.Marshal(c.BuildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %s", RedactKey(err.Error(), c.config.APIKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
			Message:    gjson.GetBytes(body, "error.message").String(),
		}
	}

	var response GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &response, nil
}

// RedactKey 把字符串中的API密钥替换掉，用于日志
func RedactKey(s, key string) string {
	if key == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(key), "REDACTED")
	return strings.ReplaceAll(s, key, "REDACTED")
}
