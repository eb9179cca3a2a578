package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/auth"
	"github.com/zhouzirui/coursehub/internal/config"
	"github.com/zhouzirui/coursehub/pkg/utils"
)

var (
	// ErrUnauthorized 表示后端拒绝了 bearer 令牌。调用方
	// 应丢弃已保存的令牌并让用户重新登录。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAutoLogin 表示注册成功但随后的登录失败
	ErrAutoLogin = errors.New("account created but automatic login failed")
	// ErrEmptyUpdate 课程更新没有任何字段时返回
	ErrEmptyUpdate = errors.New("nothing to update")
)

// APIError 是 401 以外的非 2xx 响应
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, detail)
}

// Client 课程市场 REST API 客户端
type Client struct {
	baseURL string
	rootURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient 为 cfg.BaseURL 创建客户端
func NewClient(cfg config.APIConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		rootURL: cfg.RootURL(),
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// BaseURL 返回包含版本前缀的 API 地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveVideoURL 将保存的视频 URL 转成播放器可打开的地址。
// 上传的文件由后端以 /static/<name> 提供，相对于服务根路径
// 而不是 API 前缀。
func (c *Client) ResolveVideoURL(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return c.rootURL + raw
}

type request struct {
	method      string
	url         string
	creds       *auth.Credentials
	body        io.Reader
	contentType string
}

func (c *Client) jsonRequest(method, path string, creds *auth.Credentials, payload interface{}) (request, error) {
	req := request{method: method, url: c.baseURL + path, creds: creds}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("failed to encode request: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, creds *auth.Credentials, out interface{}) error {
	req, _ := c.jsonRequest(http.MethodGet, path, creds, nil)
	return c.do(ctx, req, out)
}

func (c *Client) send(ctx context.Context, method, path string, creds *auth.Credentials, payload, out interface{}) error {
	req, err := c.jsonRequest(method, path, creds, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// do 执行请求，并将 2xx 响应体解码到 out
func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	if r.creds != nil && r.creds.Empty() {
		return auth.ErrNotLoggedIn
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.creds != nil {
		req.Header.Set("Authorization", r.creds.Authorization())
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", r.method).
		Str("url", r.url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Detail: utils.ErrorDetail(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
