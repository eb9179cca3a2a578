package chat

// ConnectionState 表示聊天会话传输所处的生命周期阶段
type ConnectionState string

const (
	StateClosed          ConnectionState = "closed"
	StateConnecting      ConnectionState = "connecting"
	StateOpen            ConnectionState = "open"
	StateClosedWithError ConnectionState = "closed_with_error"
)

// Live 报告传输是否已存在或正在建立
func (s ConnectionState) Live() bool {
	return s == StateConnecting || s == StateOpen
}

// Snapshot 是会话每次变化后观察者收到的内容
type Snapshot struct {
	RoomID   string
	State    ConnectionState
	Messages []Message
}
