package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrTokenExpired = errors.New("session expired, please log in again")
)

// Credentials 是认证请求的显式上下文
type Credentials struct {
	Token string
}

// Authorization 生成 bearer 令牌的请求头值
func (c Credentials) Authorization() string {
	return "Bearer " + c.Token
}

// Empty 报告是否没有令牌
func (c Credentials) Empty() bool {
	return c.Token == ""
}

// ExpiresAt 读取 exp 声明，不校验签名。不是 JWT 的令牌
// 或没有 exp 的令牌返回 ok=false。
func ExpiresAt(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired 报告令牌的 exp 是否不晚于 now
func (c Credentials) Expired(now time.Time) bool {
	exp, ok := ExpiresAt(c.Token)
	return ok && !now.Before(exp)
}
