package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/config"
)

// New 创建进程日志。非生产环境使用控制台输出，
// 除非 LOG_FORMAT=json。
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter 与 New 相同，但指定输出
func NewWithWriter(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	w := out
	if cfg.Env != "production" && cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component 为日志标记发出日志的组件
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
