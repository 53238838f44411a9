package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/errandops/fulfillment/internal/auditor"
	"github.com/errandops/fulfillment/internal/config"
	"github.com/errandops/fulfillment/internal/events"
	kafkax "github.com/errandops/fulfillment/internal/kafka"
	"github.com/errandops/fulfillment/internal/postgres"
	"github.com/errandops/fulfillment/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := newLogger(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &auditor.Service{
		DB:          db,
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-auditor",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditorGroup, events.TopicLedgerEntry, cfg.AuditorWorkers, log)

	go func() {
		log.WithFields(logrus.Fields{
			"group":   cfg.AuditorGroup,
			"topic":   events.TopicLedgerEntry,
			"workers": cfg.AuditorWorkers,
		}).Info("auditor consumer started")
		if err := cons.Start(ctx, svc.HandleLedgerEntry); err != nil {
			log.WithError(err).Error("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
