package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/model/chat"
	"github.com/zhouzirui/coursehub/internal/transport/ws"
)

// Archiver 接收被关闭会话的对话记录
type Archiver interface {
	Archive(ctx context.Context, roomID string, messages []chat.Message) error
}

// Widget 是一个聊天界面唯一的聊天拥有者。它最多保留
// 一个存活会话，上一个结束后再提供新会话。
type Widget struct {
	roomID   string
	dialer   ws.Dialer
	opts     []Option
	archiver Archiver
	log      zerolog.Logger

	mu      sync.Mutex
	current *Session
}

// WidgetOption 定制 Widget
type WidgetOption func(*Widget)

// WithSessionOptions 将 opts 应用到组件创建的每个会话
func WithSessionOptions(opts ...Option) WidgetOption {
	return func(w *Widget) {
		w.opts = append(w.opts, opts...)
	}
}

// WithArchiver 将被关闭的对话记录交给 a
func WithArchiver(a Archiver) WidgetOption {
	return func(w *Widget) {
		w.archiver = a
	}
}

// WithWidgetLogger 设置组件日志
func WithWidgetLogger(log zerolog.Logger) WidgetOption {
	return func(w *Widget) {
		w.log = log
	}
}

// NewWidget 创建绑定到 roomID 的组件
func NewWidget(roomID string, dialer ws.Dialer, opts ...WidgetOption) *Widget {
	w := &Widget{
		roomID: roomID,
		dialer: dialer,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open 在会话连接中或已打开时返回该会话，否则
// 创建一个对话记录为空的新会话并打开它。
func (w *Widget) Open(ctx context.Context) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil && w.current.State().Live() {
		return w.current
	}

	if w.current != nil {
		w.log.Debug().Str("room", w.roomID).Str("state", string(w.current.State())).Msg("replacing ended session")
	}
	s := NewSession(w.roomID, w.dialer, w.opts...)
	w.current = s
	s.Open(ctx)
	return s
}

// Current 返回已打开组件的会话，没有则返回 nil
func (w *Widget) Current() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Dismiss 关闭并丢弃当前会话。配置了归档时，
// 非空的对话记录会交给归档。
func (w *Widget) Dismiss(ctx context.Context) error {
	w.mu.Lock()
	s := w.current
	w.current = nil
	w.mu.Unlock()

	if s == nil {
		return nil
	}
	s.Close()

	if w.archiver == nil {
		return nil
	}
	messages := s.Messages()
	if len(messages) == 0 {
		return nil
	}
	if err := w.archiver.Archive(ctx, s.RoomID(), messages); err != nil {
		w.log.Warn().Err(err).Str("room", s.RoomID()).Msg("archive transcript failed")
		return err
	}
	return nil
}

// RoomID 返回该组件所有会话加入的房间
func (w *Widget) RoomID() string {
	return w.roomID
}
