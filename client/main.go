package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/phillip-england/lmsportal/internal/config"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/webapp"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger.InitLogging(logger.Options{FilePath: cfg.LogFile, Level: cfg.LogLevel})

	sessions, closeSessions, err := webapp.OpenSessions(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = closeSessions() }()

	webCfg := webapp.ConfigFrom(cfg)
	webCfg.Sessions = sessions
	if err := webapp.Run(ctx, webCfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
