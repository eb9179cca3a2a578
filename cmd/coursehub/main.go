package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/coursehub/internal/config"
	"github.com/zhouzirui/coursehub/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithWriter(cfg.Log, os.Stderr)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file, using system environment variables only")
	}

	a := newApp(cfg, log, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(a.run(ctx, os.Args[1:]))
}
