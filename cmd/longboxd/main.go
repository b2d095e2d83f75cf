package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"longbox/internal/config"
	"longbox/internal/daemon"
	"longbox/internal/logging"
	"longbox/internal/notifications"
	"longbox/internal/progress"
	"longbox/internal/services/recognizer"
	"longbox/internal/services/webdav"
	"longbox/internal/store"
	"longbox/internal/syncer"
	"longbox/internal/watcher"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	registry := progress.NewRegistry(cfg, st, logger)
	folders := webdav.New(cfg, logger)
	submitter := recognizer.New(cfg, logger)
	notifier := notifications.NewService(cfg)
	sync := syncer.New(cfg, st, folders, submitter, registry, logger)
	watch := watcher.NewManager(cfg, st, sync, registry, notifier, logger)

	d, err := daemon.New(cfg, st, logger, watch, registry, sync, notifier)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("longboxd shutting down")
}
