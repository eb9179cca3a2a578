// Package chatwidget 是课程助手聊天组件的终端版本
package chatwidget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/model/chat"
	chatsvc "github.com/zhouzirui/coursehub/internal/service/chat"
)

const (
	headerHeight = 2
	inputHeight  = 3
	footerHeight = 1

	archiveTimeout = 5 * time.Second
)

// tea 更新消息
type (
	openMsg    struct{}
	changedMsg struct{}
)

// Model 是聊天组件的 bubbletea 模型
type Model struct {
	ctx    context.Context
	widget *chatsvc.Widget
	log    zerolog.Logger

	input    textinput.Model
	viewport viewport.Model
	renderer *glamour.TermRenderer
	styles   styles

	session *chatsvc.Session
	snap    chat.Snapshot
	// updates 由会话观察者发信号。带缓冲且非阻塞写入，
	// 观察者不会等待 UI 循环。
	updates chan struct{}

	notice string
	width  int
	ready  bool
}

// New 创建组件模型，程序启动时打开聊天
func New(ctx context.Context, widget *chatsvc.Widget, log zerolog.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the course assistant... (Enter to send)"
	ti.CharLimit = 2000
	ti.Focus()

	return Model{
		ctx:     ctx,
		widget:  widget,
		log:     log,
		input:   ti,
		styles:  defaultStyles(),
		updates: make(chan struct{}, 1),
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		func() tea.Msg { return openMsg{} },
		m.waitForChange(),
	)
}

func (m Model) waitForChange() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return changedMsg{}
	}
}

// dismiss 在返回前关闭当前会话，之后的 ctrl+o
// 总能拿到新会话。
func (m *Model) dismiss() {
	ctx, cancel := context.WithTimeout(m.ctx, archiveTimeout)
	defer cancel()

	m.session = nil
	m.snap = chat.Snapshot{}
	m.notice = "chat closed, ctrl+o to start a new one"
	if err := m.widget.Dismiss(ctx); err != nil {
		m.notice = "transcript not archived: " + err.Error()
	}
	m.refresh()
}

// Update 实现 tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.dismiss()
			return m, tea.Quit
		case tea.KeyEsc:
			if m.session != nil {
				m.dismiss()
			}
			return m, nil
		case tea.KeyCtrlO:
			return m.open()
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case openMsg:
		return m.open()

	case changedMsg:
		if m.session != nil {
			m.snap = m.session.Snapshot()
			if m.snap.State == chat.StateClosedWithError {
				m.notice = "connection lost, ctrl+o to reconnect"
			}
			m.refresh()
		}
		return m, m.waitForChange()

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	}

	m.input, tiCmd = m.input.Update(msg)
	return m, tiCmd
}

func (m Model) open() (tea.Model, tea.Cmd) {
	s := m.widget.Open(m.ctx)
	if s != m.session {
		updates := m.updates
		s.Subscribe(func(chat.Snapshot) {
			select {
			case updates <- struct{}{}:
			default:
			}
		})
		m.session = s
		m.notice = ""
	}
	m.snap = s.Snapshot()
	m.refresh()
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if m.session.State() != chat.StateOpen {
		// 保留草稿，重连后可以继续发送
		m.notice = "not connected, ctrl+o to reconnect"
		m.refresh()
		return m, nil
	}

	m.session.Send(text)
	m.input.Reset()
	m.snap = m.session.Snapshot()
	m.refresh()
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	vpHeight := height - headerHeight - inputHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 6

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		m.log.Debug().Err(err).Msg("markdown renderer unavailable")
		renderer = nil
	}
	m.renderer = renderer
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.snap.Messages) == 0 {
		return m.styles.help.Render("No messages yet. Ask anything about the course.")
	}

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(m.styles.user.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			if m.session != nil && m.session.Delivery(msg.ID) == chat.DeliveryFailed {
				b.WriteString("\n")
				b.WriteString(m.styles.failed.Render("not delivered"))
			}
		default:
			b.WriteString(m.styles.assistant.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Content))
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// View 实现 tea.Model
func (m Model) View() string {
	if !m.ready {
		return "starting chat..."
	}

	state := m.snap.State
	if m.session == nil {
		state = chat.StateClosed
	}
	header := fmt.Sprintf("%s %s",
		m.styles.title.Render("Course assistant · "+m.widget.RoomID()),
		m.styles.status[state].Render(stateLabel(state)),
	)

	help := "enter send · pgup/pgdn scroll · esc close · ctrl+o open · ctrl+c quit"
	if m.notice != "" {
		help = m.notice
	}

	return strings.Join([]string{
		header,
		"",
		m.viewport.View(),
		m.styles.input.Render(m.input.View()),
		m.styles.help.Render(help),
	}, "\n")
}
