package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/errandops/fulfillment/internal/analytics"
	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/clock"
	"github.com/errandops/fulfillment/internal/config"
	"github.com/errandops/fulfillment/internal/history"
	"github.com/errandops/fulfillment/internal/httpx"
	kafkax "github.com/errandops/fulfillment/internal/kafka"
	"github.com/errandops/fulfillment/internal/ledger"
	"github.com/errandops/fulfillment/internal/orders"
	"github.com/errandops/fulfillment/internal/payments"
	"github.com/errandops/fulfillment/internal/postgres"
	"github.com/errandops/fulfillment/internal/redisx"
	"github.com/errandops/fulfillment/internal/users"
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

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	clk := clock.Real{}
	validate := validator.New()

	authSvc := &auth.Service{DB: db, Redis: rdb, TTL: cfg.TokenTTL, Clock: clk}
	userRepo := &users.Repo{DB: db, Clock: clk}
	orderRepo := &orders.Repo{DB: db, Clock: clk, Users: userRepo, CompleteReassign: cfg.CompleteReassign}
	itemRepo := &orders.ItemRepo{DB: db, Clock: clk}
	paymentRepo := &payments.Repo{DB: db, Clock: clk}
	walletStore := &ledger.Store{DB: db}
	historyStore := &history.Store{DB: db}
	analyticsStore := &analytics.Store{DB: db}

	itemsHandler := &httpx.ItemsHandler{
		Items:    itemRepo,
		Producer: prod,
		Service:  cfg.ServiceName,
		Validate: validate,
	}

	router := httpx.NewRouter()
	router.Route("/api", func(api chi.Router) {
		(&httpx.AuthHandler{Auth: authSvc, Validate: validate}).Register(api)

		api.Group(func(g chi.Router) {
			g.Use(httpx.RequireAuth(authSvc))
			(&httpx.OrdersHandler{
				Orders:     orderRepo,
				Items:      itemRepo,
				Producer:   prod,
				Service:    cfg.ServiceName,
				Validate:   validate,
				CreateItem: itemsHandler.CreateUnderOrder,
			}).Register(g)
			itemsHandler.Register(g)
			(&httpx.PaymentsHandler{Payments: paymentRepo, Producer: prod, Service: cfg.ServiceName, Validate: validate}).Register(g)
			(&httpx.WalletsHandler{Wallets: walletStore}).Register(g)
			(&httpx.HistoryHandler{History: historyStore}).Register(g)
			(&httpx.UsersHandler{Users: userRepo, Validate: validate}).Register(g)
			(&httpx.AnalyticsHandler{Analytics: analyticsStore}).Register(g)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
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
