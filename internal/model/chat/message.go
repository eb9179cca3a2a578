package chat

import "time"

// Role 标识对话记录条目的作者
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是一条不可变的对话记录，Content 为不透明文本
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeliveryState 记录用户消息对应的出站帧的投递结果
type DeliveryState string

const (
	DeliveryUnknown DeliveryState = ""
	DeliveryPending DeliveryState = "pending"
	DeliverySent    DeliveryState = "sent"
	DeliveryFailed  DeliveryState = "failed"
)
