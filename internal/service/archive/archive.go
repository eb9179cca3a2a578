package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/config"
	"github.com/zhouzirui/coursehub/internal/model/chat"
)

// maxEntries 限制流的长度，裁剪是近似的
const maxEntries = 1000

// Transcript 一条已归档的聊天
type Transcript struct {
	ID         string
	RoomID     string
	ArchivedAt time.Time
	Messages   []chat.Message
}

// RedisArchiver 将被关闭的对话记录追加到 Redis 流
type RedisArchiver struct {
	rdb    *redis.Client
	stream string
	now    func() time.Time
	log    zerolog.Logger
}

// NewRedisArchiver 连接 cfg.RedisURL 并校验连接
func NewRedisArchiver(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*RedisArchiver, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisArchiver{
		rdb:    rdb,
		stream: cfg.Stream,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}, nil
}

// Archive 将消息存为一条流记录
func (a *RedisArchiver) Archive(ctx context.Context, roomID string, messages []chat.Message) error {
	values, err := encodeEntry(roomID, messages, a.now())
	if err != nil {
		return err
	}

	id, err := a.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: a.stream,
		MaxLen: maxEntries,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to archive transcript: %w", err)
	}

	a.log.Info().Str("room", roomID).Str("entry", id).Int("messages", len(messages)).Msg("transcript archived")
	return nil
}

// Recent 返回最多 n 条对话记录，最新的在前
func (a *RedisArchiver) Recent(ctx context.Context, n int64) ([]Transcript, error) {
	entries, err := a.rdb.XRevRangeN(ctx, a.stream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(entries))
	for _, entry := range entries {
		t, err := decodeEntry(entry)
		if err != nil {
			a.log.Warn().Err(err).Str("entry", entry.ID).Msg("skipping malformed transcript")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Close 释放 Redis 连接
func (a *RedisArchiver) Close() error {
	return a.rdb.Close()
}

func encodeEntry(roomID string, messages []chat.Message, at time.Time) (map[string]interface{}, error) {
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return map[string]interface{}{
		"room":        roomID,
		"count":       strconv.Itoa(len(messages)),
		"archived_at": at.Format(time.RFC3339Nano),
		"messages":    string(data),
	}, nil
}

func decodeEntry(entry redis.XMessage) (Transcript, error) {
	room, _ := entry.Values["room"].(string)
	rawAt, _ := entry.Values["archived_at"].(string)
	rawMessages, _ := entry.Values["messages"].(string)

	at, err := time.Parse(time.RFC3339Nano, rawAt)
	if err != nil {
		return Transcript{}, fmt.Errorf("invalid archived_at: %w", err)
	}

	var messages []chat.Message
	if err := json.Unmarshal([]byte(rawMessages), &messages); err != nil {
		return Transcript{}, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return Transcript{ID: entry.ID, RoomID: room, ArchivedAt: at, Messages: messages}, nil
}
