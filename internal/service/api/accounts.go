package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/coursehub/internal/auth"
	"github.com/zhouzirui/coursehub/internal/model/course"
)

// Signup 注册新账号
func (c *Client) Signup(ctx context.Context, req course.SignupRequest) (course.User, error) {
	if err := course.Validate(req); err != nil {
		return course.User{}, err
	}
	var user course.User
	if err := c.send(ctx, http.MethodPost, "/auth/signup", nil, req, &user); err != nil {
		return course.User{}, err
	}
	return user, nil
}

// Login 用邮箱和密码换取 bearer 令牌
func (c *Client) Login(ctx context.Context, req course.LoginRequest) (course.Token, error) {
	if err := course.Validate(req); err != nil {
		return course.Token{}, err
	}
	var token course.Token
	if err := c.send(ctx, http.MethodPost, "/auth/login", nil, req, &token); err != nil {
		return course.Token{}, err
	}
	return token, nil
}

// SignupAndLogin 注册后用相同凭证登录。只有登录失败时
// 返回已创建的用户，以及包装了 ErrAutoLogin 的错误。
func (c *Client) SignupAndLogin(ctx context.Context, req course.SignupRequest) (course.User, course.Token, error) {
	user, err := c.Signup(ctx, req)
	if err != nil {
		return course.User{}, course.Token{}, err
	}

	token, err := c.Login(ctx, course.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		c.log.Warn().Err(err).Str("email", req.Email).Msg("auto login after signup failed")
		return user, course.Token{}, fmt.Errorf("%w: %w", ErrAutoLogin, err)
	}
	return user, token, nil
}

// Me 返回调用者的资料
func (c *Client) Me(ctx context.Context, creds auth.Credentials) (course.User, error) {
	var user course.User
	if err := c.get(ctx, "/auth/me", &creds, &user); err != nil {
		return course.User{}, err
	}
	return user, nil
}
