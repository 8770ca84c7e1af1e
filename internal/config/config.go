// Package config 提供配置加载和管理功能
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 3000
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultClientURL     = "ws://localhost:3000/"
	DefaultReadLimit     = 100 << 20 // 100MB

	DefaultGreeting      = "✅ Connected to NetWise! Ask a CN question."
	DefaultRefusal       = "❌ NetWise blocked non-networking topic."
	DefaultInternalError = "⚠️ Internal error: NetWise unreachable."
)

// DefaultSystemInstruction 默认系统指令，限定助手只回答计算机网络问题
const DefaultSystemInstruction = `
You are NetWise — an AI that ONLY answers Computer Networking questions:
OSI layers, TCP/IP, routing, switching, DNS, DHCP, ARP, network security, IoT protocols.
Politely refuse non-networking questions.
You may greet when user says hi or hello.
Tone: short, technical, helpful.
`

// 环境变量名
const (
	EnvAPIKey = "GEMINI_API_KEY"
	EnvPort   = "NETWISE_PORT"
	EnvModel  = "NETWISE_MODEL"
)

// Config 应用程序配置结构
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Relay     RelayConfig     `yaml:"relay"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
	Client    ClientConfig    `yaml:"client"`
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Host string `yaml:"host"` // 服务器监听地址
	Port int    `yaml:"port"` // 服务器监听端口
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GeminiConfig 外部补全接口配置
type GeminiConfig struct {
	BaseURL string `yaml:"base_url"` // 接口基础地址
	Model   string `yaml:"model"`    // 模型名称
	APIKey  string `yaml:"api_key"`  // API密钥，以查询参数传递
}

// RelayConfig 中继固定文本
type RelayConfig struct {
	SystemInstruction string `yaml:"system_instruction"` // 系统指令
	Greeting          string `yaml:"greeting"`           // 连接建立后的问候语
	Refusal           string `yaml:"refusal"`            // 无回答时的拒绝文本
	InternalError     string `yaml:"internal_error"`     // 上游失败时的错误文本
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`  // 读缓冲区大小
	WriteBufferSize int           `yaml:"write_buffer_size"` // 写缓冲区大小
	ReadLimit       int64         `yaml:"read_limit"`        // 单条消息最大字节数
	PingPeriod      time.Duration `yaml:"ping_period"`       // 心跳间隔
	PongWait        time.Duration `yaml:"pong_wait"`         // 等待Pong响应的超时时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`   // 日志级别
	ToFile bool   `yaml:"to_file"` // 是否写入滚动日志文件
	Dir    string `yaml:"dir"`     // 日志目录
	File   string `yaml:"file"`    // 日志文件名
	MaxMB  int    `yaml:"max_mb"`  // 单个日志文件大小上限
}

// ClientConfig 聊天客户端配置
type ClientConfig struct {
	URL string `yaml:"url"` // 中继服务器地址
}

// Load 从文件加载配置
//
// 文件不存在时使用默认值；随后读取 .env 和环境变量覆盖。
func Load(filename string) (*Config, error) {
	config, err := readFile(filename)
	if err != nil {
		return nil, err
	}

	loadDotEnv(filepath.Dir(filename))
	if err := applyEnv(config); err != nil {
		return nil, err
	}

	applyDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

// readFile 读取并解析YAML，文件不存在时返回空配置
func readFile(filename string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return &config, nil
}

// loadDotEnv 加载 .env 文件，已存在的环境变量不会被覆盖
func loadDotEnv(dir string) {
	for _, path := range []string{filepath.Join(dir, ".env"), ".env"} {
		_ = godotenv.Load(path)
	}
}

// applyEnv 使用环境变量覆盖配置
func applyEnv(config *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		config.Gemini.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		config.Gemini.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidPort, EnvPort, v)
		}
		config.Server.Port = port
	}
	return nil
}

// applyDefaults 设置默认值
func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}

	if config.Gemini.BaseURL == "" {
		config.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	config.Gemini.BaseURL = strings.TrimRight(config.Gemini.BaseURL, "/")
	if config.Gemini.Model == "" {
		config.Gemini.Model = DefaultGeminiModel
	}

	if config.Relay.SystemInstruction == "" {
		config.Relay.SystemInstruction = DefaultSystemInstruction
	}
	if config.Relay.Greeting == "" {
		config.Relay.Greeting = DefaultGreeting
	}
	if config.Relay.Refusal == "" {
		config.Relay.Refusal = DefaultRefusal
	}
	if config.Relay.InternalError == "" {
		config.Relay.InternalError = DefaultInternalError
	}

	if config.WebSocket.ReadBufferSize == 0 {
		config.WebSocket.ReadBufferSize = 1024
	}
	if config.WebSocket.WriteBufferSize == 0 {
		config.WebSocket.WriteBufferSize = 1024
	}
	if config.WebSocket.ReadLimit == 0 {
		config.WebSocket.ReadLimit = DefaultReadLimit
	}
	if config.WebSocket.PingPeriod == 0 {
		config.WebSocket.PingPeriod = 30 * time.Second
	}
	if config.WebSocket.PongWait == 0 {
		config.WebSocket.PongWait = 60 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Dir == "" {
		config.Log.Dir = "logs"
	}
	if config.Log.File == "" {
		config.Log.File = "relay.log"
	}
	if config.Log.MaxMB <= 0 {
		config.Log.MaxMB = 10
	}

	if config.Client.URL == "" {
		config.Client.URL = DefaultClientURL
	}
}

// validateConfig 验证配置是否有效
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if config.Gemini.APIKey == "" {
		return ErrEmptyAPIKey
	}
	if config.Gemini.Model == "" {
		return ErrEmptyModel
	}
	if !strings.HasPrefix(config.Gemini.BaseURL, "http://") && !strings.HasPrefix(config.Gemini.BaseURL, "https://") {
		return ErrInvalidBaseURL
	}
	if config.WebSocket.PingPeriod >= config.WebSocket.PongWait {
		return ErrInvalidKeepalive
	}
	return nil
}

// LoadClient 加载客户端配置，不要求API密钥
func LoadClient(filename string) (*ClientConfig, error) {
	config, err := readFile(filename)
	if err != nil {
		return nil, err
	}

	if config.Client.URL == "" {
		config.Client.URL = DefaultClientURL
	}
	return &config.Client, nil
}
