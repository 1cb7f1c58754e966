package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/logger"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
)

// The consumer only needs the broker, so it reads its few settings directly
// instead of going through config.Load and its required database variables.
func main() {
	config.LoadDotEnv()
	env := config.EnvStr("APP_ENV", "dev")
	log := logger.New(env, config.EnvStr("LOG_LEVEL", "info"))

	path := config.EnvStr("AUDIT_LOG_PATH", filepath.Join("logs", "parking-audit.log"))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.WithError(err).Fatal("create audit log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Fatal("open audit log")
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("file", path).Info("audit consumer started")
	c := queue.NewConsumer(config.RabbitURL(), f, log.WithField("component", "audit"))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit consumer stopped")
	}
	log.Info("audit consumer stopped")
}
