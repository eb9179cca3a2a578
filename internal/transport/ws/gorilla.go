package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// GorillaDialer 使用 gorilla/websocket 连接后端
type GorillaDialer struct {
	baseURL string
	opts    Options
	dialer  *websocket.Dialer
	header  http.Header
	log     zerolog.Logger
}

// NewDialer 为给定的 REST 基础地址创建拨号器
func NewDialer(apiBaseURL string, opts Options, log zerolog.Logger) *GorillaDialer {
	return &GorillaDialer{
		baseURL: apiBaseURL,
		opts:    opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		header: http.Header{},
		log:    log,
	}
}

// Dial 打开到房间的连接并启动保活循环
func (d *GorillaDialer) Dial(ctx context.Context, roomID string) (Conn, error) {
	endpoint, err := ChatURL(d.baseURL, roomID)
	if err != nil {
		return nil, err
	}

	wsConn, resp, err := d.dialer.DialContext(ctx, endpoint, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c := &conn{
		ws:   wsConn,
		opts: d.opts,
		done: make(chan struct{}),
		log:  d.log.With().Str("room", roomID).Logger(),
	}

	if d.opts.ReadTimeout > 0 {
		_ = wsConn.SetReadDeadline(time.Now().Add(d.opts.ReadTimeout))
		wsConn.SetPongHandler(func(string) error {
			return wsConn.SetReadDeadline(time.Now().Add(d.opts.ReadTimeout))
		})
	}

	if d.opts.PingInterval > 0 {
		go c.pingLoop()
	}

	c.log.Debug().Str("url", endpoint).Msg("websocket connected")
	return c, nil
}

type conn struct {
	ws        *websocket.Conn
	opts      Options
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
}

func (c *conn) ReadFrame() (string, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	if c.opts.ReadTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
	return string(data), nil
}

func (c *conn) WriteFrame(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		// 尽力而为，对端可能已经断开
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		err = c.ws.Close()
	})
	return err
}

// pingLoop 发送保活 ping，直到连接关闭
func (c *conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if c.opts.WriteTimeout <= 0 {
				deadline = time.Now().Add(10 * time.Second)
			}
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}
