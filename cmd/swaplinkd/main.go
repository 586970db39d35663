package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/swaplink-labs/swaplink/internal/config"
	"github.com/swaplink-labs/swaplink/internal/core/application"
	"github.com/swaplink-labs/swaplink/internal/infrastructure/db"
	"github.com/swaplink-labs/swaplink/internal/infrastructure/evm"
	scheduler "github.com/swaplink-labs/swaplink/internal/infrastructure/scheduler/gocron"
	"github.com/swaplink-labs/swaplink/internal/infrastructure/session"
	"github.com/swaplink-labs/swaplink/internal/infrastructure/wallet"
	"github.com/swaplink-labs/swaplink/internal/interface/web"
)

// nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))
	log.Infof("starting swaplinkd %s (%s, %s)...", version, commit, date)

	sentryEnabled := cfg.SentryDSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.WithError(err).Fatal("failed to initialize sentry")
		}
	}

	dbSvc, err := db.NewService(db.ServiceConfig{
		DbType:   cfg.DbType,
		DbConfig: []any{cfg.Datadir, log.New()},
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open db")
	}

	evmSvc, err := evm.NewService(cfg.RpcUrls, cfg.SwapContracts)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to chain rpc")
	}

	walletSvc := wallet.NewService(cfg.WalletURL)
	sessionSvc, err := session.NewService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to setup session manager")
	}

	appSvc := application.NewService(dbSvc, evmSvc, evmSvc, walletSvc, sessionSvc)

	schedulerSvc := scheduler.NewScheduler()
	if err := schedulerSvc.ScheduleResync(cfg.SyncInterval, func() {
		appSvc.SyncPending(context.Background())
	}); err != nil {
		log.WithError(err).Fatal("failed to schedule resync")
	}
	schedulerSvc.Start()

	svc := web.NewService(cfg.HTTPPort, appSvc, sessionSvc, sentryEnabled)

	log.RegisterExitHandler(func() {
		svc.Stop()
		schedulerSvc.Stop()
		dbSvc.Close()
	})

	log.Info("starting service...")
	svc.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
}
