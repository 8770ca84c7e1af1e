package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrompt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"标准信封", `{"type":"prompt","prompt":"What is ARP?"}`, "What is ARP?"},
		{"缺少type", `{"prompt":"DNS"}`, "DNS"},
		{"空白问题原样转发", `{"type":"prompt","prompt":"   "}`, "   "},
		{"纯文本", `What is DHCP?`, "What is DHCP?"},
		{"损坏的JSON", `{"type":"prompt","prompt":"x"`, `{"type":"prompt","prompt":"x"`},
		{"JSON字符串", `"hello"`, `"hello"`},
		{"JSON null", `null`, `null`},
		{"缺少prompt字段", `{"type":"prompt"}`, `{"type":"prompt"}`},
		{"prompt不是字符串", `{"prompt":42}`, `{"prompt":42}`},
		{"空消息", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePrompt([]byte(tt.raw)))
		})
	}
}

func TestParsePrompt_RawBytesPreserved(t *testing.T) {
	raw := []byte("路由表 \x00 \t\n{not json")
	assert.Equal(t, string(raw), ParsePrompt(raw))
}

func TestNewPromptMessage(t *testing.T) {
	data, err := json.Marshal(NewPromptMessage("TCP"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"prompt","prompt":"TCP"}`, string(data))
	assert.Equal(t, "TCP", ParsePrompt(data))
}
