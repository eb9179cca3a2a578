// Package ws 通过 websocket 将聊天帧传到后端的
// /ws/chat/{roomId} 接口。
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/coursehub/internal/config"
)

// ErrEmptyRoom 拨号时没有房间标识返回
var ErrEmptyRoom = errors.New("room id is required")

// Conn 是一个独占的存活传输连接，一帧对应
// 一条聊天消息。
type Conn interface {
	// ReadFrame 阻塞等待下一个入站帧。二进制帧原样返回，
	// 不做解码。
	ReadFrame() (string, error)
	// WriteFrame 将 text 原样作为单个文本帧发送
	WriteFrame(text string) error
	// Close 拆除连接，可重复调用
	Close() error
}

// Dialer 为房间建立 Conn
type Dialer interface {
	Dial(ctx context.Context, roomID string) (Conn, error)
}

// Options 调整 websocket 连接参数
type Options struct {
	HandshakeTimeout time.Duration // 握手超时
	ReadTimeout      time.Duration // 空闲读超时，收到 pong 或帧时延长
	WriteTimeout     time.Duration // 单帧写超时
	PingInterval     time.Duration // 保活周期
}

// DefaultOptions 返回默认连接参数
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// OptionsFromConfig 将聊天配置映射为传输参数
func OptionsFromConfig(cfg config.ChatConfig) Options {
	return Options{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		PingInterval:     cfg.PingInterval,
	}
}

// ChatURL 从 REST 基础地址推导聊天地址。websocket
// 协议与 API 协议对应：http -> ws，https -> wss。
func ChatURL(apiBaseURL, roomID string) (string, error) {
	if strings.TrimSpace(roomID) == "" {
		return "", ErrEmptyRoom
	}

	u, err := url.Parse(strings.TrimSpace(apiBaseURL))
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported api scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api base url %q has no host", apiBaseURL)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/") + "/ws/chat/" + url.PathEscape(roomID), nil
}
