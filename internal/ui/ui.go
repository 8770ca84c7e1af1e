// Package ui 提供基于tview的终端聊天界面
package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"netwise_relay/internal/chat"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const typingText = "NetWise is typing…"

// 界面命令
const (
	CommandHelp      = "/help"
	CommandClear     = "/clear"
	CommandReconnect = "/reconnect"
	CommandQuit      = "/quit"
	CommandTopics    = "/topics"
	CommandTopic     = "/topic"
	CommandSound     = "/sound"
)

// Topics 推荐话题，/topic 选中后填入输入框
var Topics = []string{"TCP", "Routing", "DNS", "Congestion Control", "Socket programming", "ARP", "DHCP"}

// View 终端界面，实现 chat.Renderer
type View struct {
	app          *tview.Application
	status       *tview.TextView
	conversation *tview.TextView
	input        *tview.TextArea

	// queue 在界面线程上执行更新
	queue func(func())

	mu       sync.Mutex
	messages []chat.Message
	typing   bool
	soundOn  bool
	beep     func()
}

// NewView 创建界面
func NewView() *View {
	app := tview.NewApplication()
	app.EnablePaste(true)
	app.EnableMouse(true)

	v := newView(func(f func()) { app.QueueUpdateDraw(f) })
	v.app = app
	return v
}

func newView(queue func(func())) *View {
	v := &View{queue: queue, soundOn: true}

	v.status = tview.NewTextView().SetDynamicColors(true)

	v.conversation = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	v.conversation.SetTitle("NetWise").SetBorder(true)
	v.conversation.SetScrollable(true)

	v.input = tview.NewTextArea().SetPlaceholder("Ask about TCP, Routing, DNS, ARP, DHCP…")
	v.input.SetTitle("Question").SetBorder(true)
	return v
}

// SetStatus 更新连接指示
func (v *View) SetStatus(status chat.Status, text string) {
	color := "red"
	switch status {
	case chat.StatusConnected:
		color = "green"
	case chat.StatusConnecting:
		color = "yellow"
	}
	line := fmt.Sprintf("[%s]●[-] %s", color, tview.Escape(text))
	v.queue(func() { v.status.SetText(line) })
}

// Append 追加一条消息
func (v *View) Append(msg chat.Message) {
	v.mu.Lock()
	v.messages = append(v.messages, msg)
	beep := v.beep
	ring := msg.Role == chat.RoleAssistant && v.soundOn && beep != nil
	v.mu.Unlock()
	v.redraw()

	if ring {
		beep()
	}
}

// ShowTyping 显示输入提示
func (v *View) ShowTyping() {
	v.mu.Lock()
	v.typing = true
	v.mu.Unlock()
	v.redraw()
}

// HideTyping 隐藏输入提示
func (v *View) HideTyping() {
	v.mu.Lock()
	v.typing = false
	v.mu.Unlock()
	v.redraw()
}

// Clear 清空对话
func (v *View) Clear() {
	v.mu.Lock()
	v.messages = nil
	v.typing = false
	v.mu.Unlock()
	v.redraw()
}

// Transcript 返回当前对话的渲染文本
func (v *View) Transcript() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	for _, msg := range v.messages {
		b.WriteString(FormatMessage(msg))
		b.WriteString("\n")
	}
	if v.typing {
		b.WriteString("[skyblue]● " + typingText + "[-]\n")
	}
	return b.String()
}

func (v *View) redraw() {
	text := v.Transcript()
	v.queue(func() {
		v.conversation.SetText(text)
		v.conversation.ScrollToEnd()
	})
}

// FormatMessage 把一条消息格式化为tview颜色文本
func FormatMessage(msg chat.Message) string {
	text := tview.Escape(msg.Text)
	ts := msg.Time.Format("15:04")
	switch msg.Role {
	case chat.RoleUser:
		return fmt.Sprintf("[gray]%s[-] [::b]You:[::-] %s", ts, text)
	case chat.RoleAssistant:
		return fmt.Sprintf("[gray]%s[-] [violet]⚡[-] %s", ts, text)
	case chat.RoleError:
		return fmt.Sprintf("[gray]%s[-] [red]%s[-]", ts, text)
	default:
		return fmt.Sprintf("[gray]%s[-] [yellow]%s[-]", ts, text)
	}
}

// Handle 处理一行输入，返回是否退出
func (v *View) Handle(ctx context.Context, client *chat.Client, line string) bool {
	switch trimmed := strings.TrimSpace(line); {
	case trimmed == CommandQuit:
		return true
	case trimmed == CommandClear:
		client.Clear()
	case trimmed == CommandReconnect:
		client.Focus(ctx)
	case trimmed == CommandTopics:
		v.system(topicList())
	case trimmed == CommandTopic || strings.HasPrefix(trimmed, CommandTopic+" "):
		v.pickTopic(strings.TrimSpace(strings.TrimPrefix(trimmed, CommandTopic)))
	case trimmed == CommandSound:
		if v.toggleSound() {
			v.system("🔔 Sound on.")
		} else {
			v.system("🔕 Sound off.")
		}
	case trimmed == CommandHelp:
		v.system("Commands: /topics /topic <n> /sound /clear /reconnect /quit. Esc leaves the input, Enter returns to it.")
	default:
		client.Submit(line)
	}
	return false
}

// SoundOn 回复提示音是否开启
func (v *View) SoundOn() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.soundOn
}

func (v *View) toggleSound() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.soundOn = !v.soundOn
	return v.soundOn
}

// pickTopic 按序号或名称选中话题并填入输入框
func (v *View) pickTopic(arg string) {
	topic := ""
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(Topics) {
		topic = Topics[n-1]
	}
	for _, t := range Topics {
		if strings.EqualFold(t, arg) {
			topic = t
			break
		}
	}
	if topic == "" {
		v.system("Unknown topic. Use /topics to list them.")
		return
	}
	v.queue(func() { v.input.SetText(topic, true) })
}

func topicList() string {
	items := make([]string, 0, len(Topics))
	for i, t := range Topics {
		items = append(items, fmt.Sprintf("%d) %s", i+1, t))
	}
	return "Topics: " + strings.Join(items, "  ") + ". Use /topic <n> to pick one."
}

func (v *View) system(text string) {
	v.Append(chat.Message{Role: chat.RoleSystem, Text: text, Time: time.Now()})
}

// Run 运行界面直到退出
func (v *View) Run(ctx context.Context, client *chat.Client) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("创建终端失败: %w", err)
	}
	v.app.SetScreen(screen)

	v.mu.Lock()
	v.beep = func() { _ = screen.Beep() }
	v.mu.Unlock()

	v.mount(ctx, client)
	return v.app.Run()
}

// mount 组装界面并绑定按键，初始焦点不会触发重连
func (v *View) mount(ctx context.Context, client *chat.Client) {
	v.conversation.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			v.app.SetFocus(v.input)
			return nil
		}
		return event
	})

	v.input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			v.app.SetFocus(v.conversation)
			return nil
		case tcell.KeyEnter:
			line := v.input.GetText()
			v.input.SetText("", true)
			go func() {
				if v.Handle(ctx, client, line) {
					v.app.Stop()
				}
			}()
			return nil
		}
		return event
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(v.status, 1, 0, false).
		AddItem(v.conversation, 0, 1, false).
		AddItem(v.input, 5, 0, true)
	v.app.SetRoot(layout, true).SetFocus(v.input)

	// 输入框重新获得焦点相当于浏览器窗口获得焦点
	v.input.SetFocusFunc(func() {
		go client.Focus(ctx)
	})
}
