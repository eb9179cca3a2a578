package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config 汇总客户端的全部配置
type Config struct {
	API     APIConfig
	Chat    ChatConfig
	Auth    AuthConfig
	Log     LogConfig
	Archive ArchiveConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	api, err := loadAPIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	archive, err := loadArchiveConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		API:     api,
		Chat:    chat,
		Auth:    auth,
		Log:     loadLogConfig(),
		Archive: archive,
	}, nil
}

// APIConfig 后端 REST 接口配置
type APIConfig struct {
	// BaseURL includes the API prefix, e.g. http://localhost:8000/api/v1.
	BaseURL string
	Timeout time.Duration
}

// RootURL 是去掉 /api/v1 前缀的 BaseURL，静态文件和 /health
// 都在这里。
func (c APIConfig) RootURL() string {
	return strings.TrimSuffix(strings.TrimSuffix(c.BaseURL, "/"), "/api/v1")
}

// ChatConfig 助手聊天传输配置
type ChatConfig struct {
	Room             string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
}

// AuthConfig 令牌存放位置配置
type AuthConfig struct {
	TokenFile string
}

// LogConfig 日志输出配置
type LogConfig struct {
	Level  string
	Format string
	Env    string
}

// ArchiveConfig 可选的对话归档配置
type ArchiveConfig struct {
	RedisURL string
	Stream   string
}

// Enabled 报告是否提供了 Redis URL
func (c ArchiveConfig) Enabled() bool {
	return c.RedisURL != ""
}

func loadAPIConfig() (APIConfig, error) {
	base := strings.TrimSuffix(getEnvOrDefault("COURSEHUB_API_URL", "http://localhost:8000/api/v1"), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return APIConfig{}, fmt.Errorf("invalid COURSEHUB_API_URL value %q: %w", base, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return APIConfig{}, fmt.Errorf("invalid COURSEHUB_API_URL value %q: scheme must be http or https", base)
	}
	if parsed.Host == "" {
		return APIConfig{}, fmt.Errorf("invalid COURSEHUB_API_URL value %q: missing host", base)
	}

	timeout, err := parseDurationEnv("COURSEHUB_HTTP_TIMEOUT", 15*time.Second)
	if err != nil {
		return APIConfig{}, err
	}

	return APIConfig{BaseURL: base, Timeout: timeout}, nil
}

func loadChatConfig() (ChatConfig, error) {
	handshake, err := parseDurationEnv("CHAT_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}

	ping, err := parseDurationEnv("CHAT_PING_INTERVAL", 30*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}

	write, err := parseDurationEnv("CHAT_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}

	read, err := parseDurationEnv("CHAT_READ_TIMEOUT", 60*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	if read <= ping {
		// 空闲连接至少要撑过一次 ping 往返
		return ChatConfig{}, fmt.Errorf("CHAT_READ_TIMEOUT (%s) must exceed CHAT_PING_INTERVAL (%s)", read, ping)
	}

	return ChatConfig{
		Room:             getEnvOrDefault("CHAT_ROOM", "room1"),
		HandshakeTimeout: handshake,
		PingInterval:     ping,
		WriteTimeout:     write,
		ReadTimeout:      read,
	}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	tokenFile := strings.TrimSpace(os.Getenv("COURSEHUB_TOKEN_FILE"))
	if tokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return AuthConfig{}, fmt.Errorf("resolve home directory for token file: %w", err)
		}
		tokenFile = filepath.Join(home, ".coursehub", "token")
	}
	return AuthConfig{TokenFile: tokenFile}, nil
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console")),
		Env:    getEnvOrDefault("ENV", "development"),
	}
}

func loadArchiveConfig() (ArchiveConfig, error) {
	enabled, err := parseBoolEnv("CHAT_ARCHIVE_ENABLED", true)
	if err != nil {
		return ArchiveConfig{}, err
	}

	cfg := ArchiveConfig{
		RedisURL: strings.TrimSpace(os.Getenv("CHAT_ARCHIVE_REDIS_URL")),
		Stream:   getEnvOrDefault("CHAT_ARCHIVE_STREAM", "chat:transcripts"),
	}
	if !enabled {
		cfg.RedisURL = ""
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 接受 Go 时长（"15s"）或按秒计的整数
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}
