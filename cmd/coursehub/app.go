package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/coursehub/internal/auth"
	"github.com/zhouzirui/coursehub/internal/config"
	"github.com/zhouzirui/coursehub/internal/logger"
	"github.com/zhouzirui/coursehub/internal/model/course"
	"github.com/zhouzirui/coursehub/internal/service/api"
)

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	api    *api.Client
	tokens *auth.TokenStore
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	// runChat 在测试中会被替换，真实实现会接管终端
	runChat func(ctx context.Context, room string) error
}

func newApp(cfg *config.Config, log zerolog.Logger, in io.Reader, out, errOut io.Writer) *app {
	a := &app{
		cfg:    cfg,
		log:    log,
		api:    api.NewClient(cfg.API, logger.Component(log, "api")),
		tokens: auth.NewTokenStore(cfg.Auth.TokenFile),
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		now:    time.Now,
	}
	a.runChat = a.chatProgram
	return a
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"courses":       {"list published courses", a.cmdCourses},
		"course":        {"show a course with its modules: -id N", a.cmdCourse},
		"enroll":        {"enroll in a course: -id N", a.cmdEnroll},
		"signup":        {"create an account and log in: -email E [-password P] [-first-name F] [-last-name L]", a.cmdSignup},
		"login":         {"log in: -email E [-password P]", a.cmdLogin},
		"logout":        {"forget the stored token", a.cmdLogout},
		"me":            {"show your profile", a.cmdMe},
		"my-courses":    {"list courses you are enrolled in", a.cmdMyCourses},
		"studio":        {"list courses you teach", a.cmdStudio},
		"create-course": {"create a course: -title T [-description D] [-price N] [-publish]", a.cmdCreateCourse},
		"update-course": {"update a course: -id N [-title T] [-description D] [-price N] [-publish=true|false]", a.cmdUpdateCourse},
		"create-module": {"add a module: -course N [-title T]", a.cmdCreateModule},
		"upload":        {"upload a video: -module N -title T -file PATH", a.cmdUpload},
		"health":        {"check the backend", a.cmdHealth},
		"chat":          {"open the course assistant: [-room R]", a.cmdChat},
		"transcripts":   {"show archived chat transcripts: [-n N]", a.cmdTranscripts},
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	cmds := a.commands()
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(cmds)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n", args[0])
		a.usage(cmds)
		return 2
	}

	err := cmd.run(ctx, args[1:])
	if err == nil {
		return 0
	}
	return a.report(err)
}

func (a *app) report(err error) int {
	var verr *course.ValidationError
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(a.errOut, err)
		return 2
	case errors.Is(err, api.ErrUnauthorized):
		if clearErr := a.tokens.Clear(); clearErr != nil {
			a.log.Warn().Err(clearErr).Msg("failed to clear token")
		}
		fmt.Fprintln(a.errOut, "Your session is no longer valid. Please log in again: coursehub login -email <email>")
	case errors.Is(err, auth.ErrNotLoggedIn), errors.Is(err, auth.ErrTokenExpired):
		fmt.Fprintf(a.errOut, "%v. Please log in: coursehub login -email <email>\n", err)
	case errors.As(err, &verr):
		fmt.Fprintln(a.errOut, "Please fix the following:")
		for _, f := range verr.Fields {
			fmt.Fprintf(a.errOut, "  %s: %s\n", f.Field, f.Message)
		}
	default:
		fmt.Fprintf(a.errOut, "error: %v\n", err)
	}
	return 1
}

func (a *app) usage(cmds map[string]command) {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.errOut, "usage: coursehub <command> [flags]")
	fmt.Fprintln(a.errOut)
	for _, name := range names {
		fmt.Fprintf(a.errOut, "  %-14s %s\n", name, cmds[name].usage)
	}
}

// credentials 返回已保存的令牌，过期的令牌会被丢弃
func (a *app) credentials() (auth.Credentials, error) {
	return a.tokens.Current(a.now())
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// readSecret 在参数留空时从标准输入读取一行
func (a *app) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.errOut, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
