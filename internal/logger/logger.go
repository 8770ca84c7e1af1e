// Package logger 配置全局logrus日志
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"netwise_relay/internal/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu        sync.Mutex
	logWriter *lumberjack.Logger
)

// fieldOrder 追加在行尾的字段及其顺序
var fieldOrder = []string{"status", "elapsed", "remote", "error"}

// LineFormatter 单行日志格式
//
// [2025-01-02 15:04:05] [conn_id ] [info ] [relay_handler.go:42] 消息 status=200
type LineFormatter struct{}

// Format 格式化一条日志
func (f *LineFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	id := "--------"
	if v, ok := entry.Data["conn_id"].(string); ok && v != "" {
		id = v
	}
	if v, ok := entry.Data["request_id"].(string); ok && v != "" {
		id = v
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fields []string
	for _, k := range fieldOrder {
		if v, ok := entry.Data[k]; ok {
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fieldsStr := ""
	if len(fields) > 0 {
		fieldsStr = " " + strings.Join(fields, " ")
	}

	message := strings.TrimRight(entry.Message, "\r\n")
	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s] [%s] [%-5s] [%s:%d] %s%s\n", timestamp, id, level,
			filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		fmt.Fprintf(buffer, "[%s] [%s] [%-5s] %s%s\n", timestamp, id, level, message, fieldsStr)
	}
	return buffer.Bytes(), nil
}

// Setup 根据配置设置日志级别和输出，并把gin的输出接到logrus
func Setup(cfg config.LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&LineFormatter{})

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}

	var out io.Writer = os.Stdout
	if cfg.ToFile {
		if cfg.File == "" {
			cfg.File = "relay.log"
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return fmt.Errorf("创建日志目录失败: %w", err)
		}
		logWriter = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, cfg.File),
			MaxSize:    cfg.MaxMB,
			MaxBackups: 3,
		}
		out = logWriter
	}
	log.SetOutput(out)

	gin.DefaultWriter = log.StandardLogger().Writer()
	gin.DefaultErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
	return nil
}

// Close 关闭日志文件
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	log.SetOutput(os.Stdout)
}
