package chatwidget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/coursehub/internal/model/chat"
	chatsvc "github.com/zhouzirui/coursehub/internal/service/chat"
	"github.com/zhouzirui/coursehub/internal/transport/ws"
)

type pipeConn struct {
	inbound chan string
	drop    chan error
	closed  chan struct{}
	once    sync.Once
}

func (c *pipeConn) ReadFrame() (string, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case err := <-c.drop:
		return "", err
	case <-c.closed:
		return "", errors.New("closed")
	}
}

func (c *pipeConn) WriteFrame(string) error { return nil }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type pipeDialer struct {
	mu    sync.Mutex
	conns []*pipeConn
}

func (d *pipeDialer) Dial(context.Context, string) (ws.Conn, error) {
	c := &pipeConn{inbound: make(chan string), drop: make(chan error), closed: make(chan struct{})}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *pipeDialer) last() *pipeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

type memArchiver struct {
	mu     sync.Mutex
	counts []int
	err    error
}

func (a *memArchiver) Archive(_ context.Context, _ string, messages []chat.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = append(a.counts, len(messages))
	return a.err
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func openModel(t *testing.T, archiver chatsvc.Archiver) (Model, *pipeDialer) {
	t.Helper()
	dialer := &pipeDialer{}
	opts := []chatsvc.WidgetOption{}
	if archiver != nil {
		opts = append(opts, chatsvc.WithArchiver(archiver))
	}
	widget := chatsvc.NewWidget("room1", dialer, opts...)
	t.Cleanup(func() { _ = widget.Dismiss(context.Background()) })

	m := New(context.Background(), widget, zerolog.Nop())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = update(t, m, openMsg{})
	require.NotNil(t, m.session)
	require.Eventually(t, func() bool { return m.session.State() == chat.StateOpen }, 2*time.Second, 5*time.Millisecond)
	m, _ = update(t, m, changedMsg{})
	return m, dialer
}

func TestSubmitSendsAndClearsInput(t *testing.T) {
	m, dialer := openModel(t, nil)

	m.input.SetValue("What is recursion?")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.input.Value())
	require.Len(t, m.snap.Messages, 1)
	assert.Equal(t, chat.RoleUser, m.snap.Messages[0].Role)

	dialer.last().inbound <- "Recursion is..."
	require.Eventually(t, func() bool { return len(m.session.Messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	m, cmd := update(t, m, changedMsg{})
	assert.NotNil(t, cmd)
	require.Len(t, m.snap.Messages, 2)
	assert.Equal(t, "Recursion is...", m.snap.Messages[1].Content)

	view := m.View()
	assert.Contains(t, view, "room1")
	assert.Contains(t, view, "online")
	assert.Contains(t, view, "What is recursion?")
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m, _ := openModel(t, nil)

	m.input.SetValue("   ")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.session.Messages())
}

func TestDropKeepsDraftAndReconnectStartsFresh(t *testing.T) {
	m, dialer := openModel(t, nil)
	m.input.SetValue("first")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	old := m.session
	dialer.last().drop <- errors.New("network down")
	require.Eventually(t, func() bool { return old.State() == chat.StateClosedWithError }, 2*time.Second, 5*time.Millisecond)
	m, _ = update(t, m, changedMsg{})
	assert.Contains(t, m.View(), "disconnected")

	m.input.SetValue("test")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "test", m.input.Value())
	assert.Len(t, old.Messages(), 1)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotSame(t, old, m.session)
	assert.Empty(t, m.snap.Messages)
}

func TestEscDismissesAndArchives(t *testing.T) {
	archiver := &memArchiver{}
	m, _ := openModel(t, archiver)
	widget := m.widget
	m.input.SetValue("hello")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	s := m.session

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.session)
	assert.Nil(t, widget.Current())
	assert.Equal(t, chat.StateClosed, s.State())
	assert.Equal(t, []int{1}, archiver.counts)
	assert.Contains(t, m.View(), "closed")

	// Esc again is a no-op.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []int{1}, archiver.counts)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, m.session)
	assert.NotSame(t, s, m.session)
}

func TestArchiveFailureIsShown(t *testing.T) {
	archiver := &memArchiver{err: errors.New("redis down")}
	m, _ := openModel(t, archiver)
	m.input.SetValue("hello")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Contains(t, m.notice, "redis down")
}

func TestCtrlCQuits(t *testing.T) {
	m, _ := openModel(t, nil)
	s := m.session

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, chat.StateClosed, s.State())
}

func TestRenderMarkdownFallsBackToPlainText(t *testing.T) {
	m := Model{}
	assert.Equal(t, "**bold**", m.renderMarkdown("**bold**"))
}

func TestViewBeforeResize(t *testing.T) {
	m := New(context.Background(), chatsvc.NewWidget("room1", &pipeDialer{}), zerolog.Nop())
	assert.Equal(t, "starting chat...", m.View())
}
