package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/coursehub/internal/logger"
	"github.com/zhouzirui/coursehub/internal/service/archive"
	"github.com/zhouzirui/coursehub/internal/service/chat"
	"github.com/zhouzirui/coursehub/internal/transport/ws"
	"github.com/zhouzirui/coursehub/internal/ui/chatwidget"
)

var errArchiveDisabled = errors.New("transcript archive is not configured (set CHAT_ARCHIVE_REDIS_URL)")

func (a *app) cmdChat(ctx context.Context, args []string) error {
	fs := a.flags("chat")
	room := fs.String("room", a.cfg.Chat.Room, "chat room id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*room) == "" {
		return usageError("chat requires a non-empty -room")
	}
	return a.runChat(ctx, *room)
}

// newWidget 将聊天组件接到 websocket 传输上，配置了归档时也接上对话归档。
// 返回的函数用于释放归档连接。
func (a *app) newWidget(ctx context.Context, room string) (*chat.Widget, func()) {
	dialer := ws.NewDialer(a.cfg.API.BaseURL, ws.OptionsFromConfig(a.cfg.Chat), logger.Component(a.log, "ws"))

	opts := []chat.WidgetOption{
		chat.WithWidgetLogger(logger.Component(a.log, "widget")),
		chat.WithSessionOptions(chat.WithLogger(logger.Component(a.log, "chat"))),
	}
	release := func() {}

	if a.cfg.Archive.Enabled() {
		archiver, err := archive.NewRedisArchiver(ctx, a.cfg.Archive, logger.Component(a.log, "archive"))
		if err != nil {
			// 没有归档聊天照样可用
			a.log.Warn().Err(err).Msg("transcript archive unavailable")
		} else {
			opts = append(opts, chat.WithArchiver(archiver))
			release = func() { _ = archiver.Close() }
		}
	}

	return chat.NewWidget(room, dialer, opts...), release
}

func (a *app) chatProgram(ctx context.Context, room string) error {
	widget, release := a.newWidget(ctx, room)
	defer release()

	p := tea.NewProgram(
		chatwidget.New(ctx, widget, logger.Component(a.log, "ui")),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat ui: %w", err)
	}
	// 被中断的运行不走 ctrl+c 路径
	if current := widget.Current(); current != nil {
		current.Close()
	}
	return nil
}

func (a *app) cmdTranscripts(ctx context.Context, args []string) error {
	fs := a.flags("transcripts")
	n := fs.Int64("n", 5, "number of transcripts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n <= 0 {
		return usageError("%s requires -n greater than 0", fs.Name())
	}
	if !a.cfg.Archive.Enabled() {
		return errArchiveDisabled
	}

	archiver, err := archive.NewRedisArchiver(ctx, a.cfg.Archive, logger.Component(a.log, "archive"))
	if err != nil {
		return err
	}
	defer archiver.Close()

	transcripts, err := archiver.Recent(ctx, *n)
	if err != nil {
		return err
	}
	if len(transcripts) == 0 {
		fmt.Fprintln(a.out, "No archived transcripts.")
		return nil
	}
	for _, t := range transcripts {
		fmt.Fprintf(a.out, "== %s  room=%s  %s\n", t.ID, t.RoomID, t.ArchivedAt.Local().Format("2006-01-02 15:04"))
		for _, m := range t.Messages {
			fmt.Fprintf(a.out, "%-9s %s\n", m.Role+":", m.Content)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}
