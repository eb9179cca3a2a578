package chat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/model/chat"
	"github.com/zhouzirui/coursehub/internal/transport/ws"
)

// Session 持有绑定到固定房间的一个传输及其上的对话记录。
// 会话只能使用一次：连接断开后，通过新会话恢复
// （见 Widget）。
//
// 失败只通过 State 报告，Send 从不返回错误。
type Session struct {
	roomID string
	dialer ws.Dialer
	log    zerolog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      chat.ConnectionState
	started    bool
	conn       ws.Conn
	cancelDial context.CancelFunc
	messages   []chat.Message
	delivery   map[string]chat.DeliveryState
	observers  []func(chat.Snapshot)
	version    uint64

	// sendMu 保证出站帧与回显顺序一致
	sendMu sync.Mutex

	// notifyMu 串行化观察者调用；delivered 是已交付的最新快照版本，
	// 由 notifyMu 保护。
	notifyMu  sync.Mutex
	delivered uint64
}

// change 是待交付的快照，连同快照时已注册的
// 观察者。
type change struct {
	snap      chat.Snapshot
	version   uint64
	observers []func(chat.Snapshot)
}

// Option 定制 Session
type Option func(*Session)

// WithLogger 设置会话日志
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithClock 替换消息时间戳使用的时钟
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession 为 roomID 创建一个关闭状态的会话
func NewSession(roomID string, dialer ws.Dialer, opts ...Option) *Session {
	s := &Session{
		roomID:   roomID,
		dialer:   dialer,
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
		state:    chat.StateClosed,
		messages: make([]chat.Message, 0, 16),
		delivery: make(map[string]chat.DeliveryState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("room", roomID).Logger()
	return s
}

// RoomID 返回会话绑定的房间
func (s *Session) RoomID() string {
	return s.roomID
}

// Open 开始连接并立即返回。ctx 只约束拨号过程，
// 建立的连接一直存活到 Close 或传输断开。对已打开过的
// 会话调用 Open 不做任何事。
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	dialCtx, cancel := context.WithCancel(ctx)
	s.cancelDial = cancel
	s.state = chat.StateConnecting
	ch := s.changeLocked()
	s.mu.Unlock()

	s.log.Debug().Msg("connecting")
	s.notify(ch)

	go s.connect(dialCtx)
}

func (s *Session) connect(ctx context.Context) {
	conn, err := s.dialer.Dial(ctx, s.roomID)

	s.mu.Lock()
	if s.state != chat.StateConnecting {
		// 拨号期间已关闭，迟到的连接不归我们
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.cancelDial()
	if err != nil {
		s.state = chat.StateClosedWithError
		ch := s.changeLocked()
		s.mu.Unlock()

		s.log.Warn().Err(err).Msg("connect failed")
		s.notify(ch)
		return
	}
	s.conn = conn
	s.state = chat.StateOpen
	ch := s.changeLocked()
	s.mu.Unlock()

	s.log.Info().Msg("session open")
	s.notify(ch)

	s.readLoop(conn)
}

// readLoop 按到达顺序追加入站帧，直到传输失败
func (s *Session) readLoop(conn ws.Conn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			s.dropped(conn, err)
			return
		}
		s.receive(conn, frame)
	}
}

func (s *Session) receive(conn ws.Conn, frame string) {
	s.mu.Lock()
	if s.conn != conn || s.state != chat.StateOpen {
		s.mu.Unlock()
		return
	}
	s.messages = append(s.messages, chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleAssistant,
		Content:   frame,
		CreatedAt: s.now(),
	})
	ch := s.changeLocked()
	s.mu.Unlock()

	s.log.Debug().Int("bytes", len(frame)).Msg("frame received")
	s.notify(ch)
}

func (s *Session) dropped(conn ws.Conn, err error) {
	s.mu.Lock()
	if s.conn != conn {
		// 我们自己关闭的
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = chat.StateClosedWithError
	ch := s.changeLocked()
	s.mu.Unlock()

	_ = conn.Close()
	s.log.Warn().Err(err).Msg("connection dropped")
	s.notify(ch)
}

// Send 将 text 作为用户消息追加到对话记录，并作为一帧交给
// 传输。空白文本或会话未打开时，Send 静默不做任何事。
func (s *Session) Send(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	conn := s.conn
	if s.state != chat.StateOpen || conn == nil {
		s.mu.Unlock()
		return
	}
	msg := chat.Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.delivery[msg.ID] = chat.DeliveryPending
	ch := s.changeLocked()
	s.mu.Unlock()

	s.notify(ch)

	err := conn.WriteFrame(text)

	s.mu.Lock()
	if err != nil {
		s.delivery[msg.ID] = chat.DeliveryFailed
	} else {
		s.delivery[msg.ID] = chat.DeliverySent
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("message", msg.ID).Msg("send failed")
	}
}

// Close 无论处于何种状态都拆除传输，保留
// 对话记录。关闭已关闭的会话不做任何事。
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == chat.StateClosed {
		s.mu.Unlock()
		return
	}
	conn := s.conn
	s.conn = nil
	if s.cancelDial != nil {
		s.cancelDial()
	}
	s.state = chat.StateClosed
	ch := s.changeLocked()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.log.Info().Int("messages", len(ch.snap.Messages)).Msg("session closed")
	s.notify(ch)
}

// State 返回当前连接状态
func (s *Session) State() chat.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages 返回对话记录的副本，按时间先后排列
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMessagesLocked()
}

// Delivery 报告用户消息对应帧的投递结果
func (s *Session) Delivery(messageID string) chat.DeliveryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivery[messageID]
}

// Subscribe 注册 fn，在每次状态变化或追加消息后调用。调用是
// 串行的，快照按从旧到新到达；轮到之前已被取代的快照会被
// 跳过。fn 在引起变化的 goroutine 上运行，不能阻塞，
// 也不能调用 Send、Open 或 Close。
func (s *Session) Subscribe(fn func(chat.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot 同时返回当前状态和对话记录
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() chat.Snapshot {
	return chat.Snapshot{
		RoomID:   s.roomID,
		State:    s.state,
		Messages: s.copyMessagesLocked(),
	}
}

func (s *Session) copyMessagesLocked() []chat.Message {
	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// changeLocked 记录一次变更，并捕获 s.mu 释放后
// notify 要交付的内容。
func (s *Session) changeLocked() change {
	s.version++
	return change{
		snap:      s.snapshotLocked(),
		version:   s.version,
		observers: slices.Clone(s.observers),
	}
}

// notify 将 ch 交给其观察者。交付不会倒退：比已交付快照
// 更旧的快照直接丢弃，观察者已经看到了
// 更新的状态。
func (s *Session) notify(ch change) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if ch.version < s.delivered {
		return
	}
	s.delivered = ch.version
	for _, fn := range ch.observers {
		fn(ch.snap)
	}
}
